package layer

import "fmt"

// TopologyKind identifies how a layer's spans relate to other layers.
type TopologyKind string

// Topology kind constants.
const (
	// KindIndependent layers own their elementary spans outright.
	KindIndependent TopologyKind = "independent"
	// KindParent layers annotate the spans of another layer 1:1, sharing
	// exact boundaries.
	KindParent TopologyKind = "parent"
	// KindEnveloping layers wrap ordered runs of another layer's spans.
	KindEnveloping TopologyKind = "enveloping"
	// KindFragment layers carry sub-spans contained inside another layer's spans.
	KindFragment TopologyKind = "fragment"
)

// validTopologyKinds is the set of valid topology kinds.
var validTopologyKinds = map[TopologyKind]bool{
	KindIndependent: true,
	KindParent:      true,
	KindEnveloping:  true,
	KindFragment:    true,
}

// IsValid returns true if the topology kind is valid.
func (k TopologyKind) IsValid() bool {
	return validTopologyKinds[k]
}

// Topology is a layer's topology tag: the kind plus, for dependent kinds,
// the name of the base layer. Exactly one of the four kinds applies; a layer
// never has both a parent and an enveloped layer.
type Topology struct {
	Kind TopologyKind `json:"kind"`
	// Base is the name of the parent, enveloped or fragmented layer.
	// Empty for independent layers.
	Base string `json:"base,omitempty"`
}

// Independent returns the topology of a layer that owns its own spans.
func Independent() Topology {
	return Topology{Kind: KindIndependent}
}

// Parent returns the topology of a layer annotating the spans of base 1:1.
func Parent(base string) Topology {
	return Topology{Kind: KindParent, Base: base}
}

// Enveloping returns the topology of a layer whose spans wrap runs of
// base's spans.
func Enveloping(base string) Topology {
	return Topology{Kind: KindEnveloping, Base: base}
}

// Fragment returns the topology of a layer whose spans are sub-intervals of
// base's spans.
func Fragment(base string) Topology {
	return Topology{Kind: KindFragment, Base: base}
}

// Dependent reports whether the topology names a base layer.
func (t Topology) Dependent() bool {
	return t.Kind != KindIndependent
}

func (t Topology) String() string {
	if t.Dependent() {
		return fmt.Sprintf("%s(%s)", t.Kind, t.Base)
	}
	return string(t.Kind)
}

// validate checks the tag itself: the kind must be known, dependent kinds
// must name a base and independent ones must not.
func (t Topology) validate() error {
	if !t.Kind.IsValid() {
		return fmt.Errorf("invalid topology kind %q", t.Kind)
	}
	if t.Dependent() && t.Base == "" {
		return fmt.Errorf("topology %s requires a base layer name", t.Kind)
	}
	if !t.Dependent() && t.Base != "" {
		return fmt.Errorf("independent topology must not name a base layer")
	}
	return nil
}
