// Command strata is the CLI for the strata annotation framework.
// It provides commands for storing, tagging, querying, and exchanging
// annotated documents.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/strata-nlp/strata/core/query"
	"github.com/strata-nlp/strata/core/record"
	"github.com/strata-nlp/strata/core/resolve"
	"github.com/strata-nlp/strata/core/text"
	"github.com/strata-nlp/strata/internal/archive"
	"github.com/strata-nlp/strata/internal/formats/tei"
	"github.com/strata-nlp/strata/internal/logging"
	"github.com/strata-nlp/strata/internal/remote"
	"github.com/strata-nlp/strata/internal/storage"
	"github.com/strata-nlp/strata/internal/taggers"
)

const version = "0.1.0"

// CLI defines the command-line interface for strata.
var CLI struct {
	// Global flags
	DB      string `name:"db" default:"strata.db" help:"Document store path" type:"path"`
	Verbose bool   `short:"v" help:"Enable debug logging"`

	Doc     DocGroup    `cmd:"" help:"Document store operations (add, get, list, remove)"`
	Corpus  CorpusGroup `cmd:"" help:"Corpus archive operations (export, import)"`
	Tag     TagCmd      `cmd:"" help:"Run the built-in taggers on a stored document"`
	Inspect InspectCmd  `cmd:"" help:"Inspect a stored document's layers"`
	Resolve ResolveCmd  `cmd:"" help:"Resolve span conflicts in a layer"`
	Serve   ServeCmd    `cmd:"" help:"Serve taggers over WebSocket"`
	Version VersionCmd  `cmd:"" help:"Print version information"`
}

// DocGroup contains document store operations.
type DocGroup struct {
	Add    DocAddCmd    `cmd:"" help:"Add a document from a plain text or TEI file"`
	Get    DocGetCmd    `cmd:"" help:"Print a stored document as JSON"`
	List   DocListCmd   `cmd:"" help:"List stored documents"`
	Remove DocRemoveCmd `cmd:"" help:"Remove a stored document"`
}

// CorpusGroup contains corpus archive operations.
type CorpusGroup struct {
	Export CorpusExportCmd `cmd:"" help:"Export the store to a corpus archive"`
	Import CorpusImportCmd `cmd:"" help:"Import a corpus archive into the store"`
}

func openStore() (*storage.Store, error) {
	return storage.Open(CLI.DB)
}

// DocAddCmd adds a document to the store.
type DocAddCmd struct {
	Path string `arg:"" help:"Path to the input file" type:"existingfile"`
	Name string `help:"Document name (defaults to the file name)"`
	TEI  bool   `name:"tei" help:"Parse the input as TEI XML"`
}

func (c *DocAddCmd) Run() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var t *text.Text
	if c.TEI {
		t, err = tei.Import(data)
		if err != nil {
			return err
		}
	} else {
		t = text.New(string(data))
	}

	name := c.Name
	if name == "" {
		name = baseName(c.Path)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.Insert(name, t)
	if err != nil {
		return err
	}
	fmt.Printf("stored %q as %s\n", name, id)
	return nil
}

// DocGetCmd prints a stored document as JSON.
type DocGetCmd struct {
	Name string `arg:"" help:"Document name"`
}

func (c *DocGetCmd) Run() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	t, err := store.GetByName(c.Name)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(record.TextToRecord(t), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// DocListCmd lists stored documents.
type DocListCmd struct{}

func (c *DocListCmd) Run() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	docs, err := store.List()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("no documents stored")
		return nil
	}
	for _, d := range docs {
		fmt.Printf("%s  %s  %s\n", d.ID, d.CreatedAt, d.Name)
	}
	return nil
}

// DocRemoveCmd removes a stored document.
type DocRemoveCmd struct {
	ID string `arg:"" help:"Document id"`
}

func (c *DocRemoveCmd) Run() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Delete(c.ID); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", c.ID)
	return nil
}

// CorpusExportCmd exports all stored documents to an archive.
type CorpusExportCmd struct {
	Out string `arg:"" help:"Output archive path (.tar.xz)" type:"path"`
}

func (c *CorpusExportCmd) Run() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	infos, err := store.List()
	if err != nil {
		return err
	}
	docs := make([]archive.Document, 0, len(infos))
	for _, info := range infos {
		t, err := store.Get(info.ID)
		if err != nil {
			return err
		}
		docs = append(docs, archive.Document{Name: info.Name, Text: t})
	}
	if err := archive.Export(c.Out, docs); err != nil {
		return err
	}
	fmt.Printf("exported %d documents to %s\n", len(docs), c.Out)
	return nil
}

// CorpusImportCmd imports an archive into the store.
type CorpusImportCmd struct {
	Path string `arg:"" help:"Archive path" type:"existingfile"`
}

func (c *CorpusImportCmd) Run() error {
	docs, err := archive.Import(c.Path)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, doc := range docs {
		if _, err := store.Insert(doc.Name, doc.Text); err != nil {
			return err
		}
	}
	fmt.Printf("imported %d documents from %s\n", len(docs), c.Path)
	return nil
}

// TagCmd runs the built-in tokenizer and sentence grouper on a document.
type TagCmd struct {
	Name      string `arg:"" help:"Document name"`
	Tokens    string `default:"tokens" help:"Token layer name"`
	Sentences string `default:"sentences" help:"Sentence layer name"`
}

func (c *TagCmd) Run() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	t, err := store.GetByName(c.Name)
	if err != nil {
		return err
	}
	pipeline := taggers.Pipeline(c.Tokens, c.Sentences)
	if err := pipeline.Apply(t); err != nil {
		return err
	}

	infos, err := store.List()
	if err != nil {
		return err
	}
	for _, info := range infos {
		if info.Name == c.Name {
			if err := store.Update(info.ID, t); err != nil {
				return err
			}
			fmt.Printf("tagged %q: layers now %s\n", c.Name, strings.Join(t.LayerNames(), ", "))
			return nil
		}
	}
	return fmt.Errorf("document %q disappeared during tagging", c.Name)
}

// InspectCmd prints layer contents, optionally filtered by a query.
type InspectCmd struct {
	Name  string `arg:"" help:"Document name"`
	Layer string `arg:"" help:"Layer name"`
	Where string `help:"Filter expression, e.g. 'kind == \"word\" and len > 3'"`
}

func (c *InspectCmd) Run() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	t, err := store.GetByName(c.Name)
	if err != nil {
		return err
	}
	l, ok := t.Layer(c.Layer)
	if !ok {
		return fmt.Errorf("document %q has no layer %q", c.Name, c.Layer)
	}
	if c.Where != "" {
		q, err := query.Compile(c.Where)
		if err != nil {
			return err
		}
		if l, err = q.Filter(l); err != nil {
			return err
		}
	}

	for _, s := range l.Spans() {
		snippet, err := s.Text()
		if err != nil {
			snippet = ""
		}
		fmt.Printf("[%d, %d) %q", s.Start(), s.End(), snippet)
		for _, attr := range l.Attributes() {
			vals, err := s.GetAll(attr)
			if err != nil {
				continue
			}
			fmt.Printf(" %s=%v", attr, vals)
		}
		fmt.Println()
	}
	fmt.Printf("%d spans\n", l.Len())
	return nil
}

// ResolveCmd resolves overlap conflicts in a stored layer.
type ResolveCmd struct {
	Name      string `arg:"" help:"Document name"`
	Layer     string `arg:"" help:"Layer name"`
	Strategy  string `default:"MAX" enum:"MAX,MIN,ALL" help:"Resolution strategy"`
	Priority  string `default:"_priority_" help:"Priority attribute name"`
	KeepEqual bool   `help:"Keep all equal-priority annotations at a location"`
}

func (c *ResolveCmd) Run() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	t, err := store.GetByName(c.Name)
	if err != nil {
		return err
	}
	l, ok := t.Layer(c.Layer)
	if !ok {
		return fmt.Errorf("document %q has no layer %q", c.Name, c.Layer)
	}
	resolved, err := resolve.ResolveConflicts(l, resolve.Options{
		Strategy:          resolve.Strategy(c.Strategy),
		PriorityAttribute: c.Priority,
		KeepEqual:         c.KeepEqual,
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d spans -> %d spans\n", c.Layer, l.Len(), resolved.Len())
	return nil
}

// ServeCmd serves the built-in taggers over WebSocket.
type ServeCmd struct {
	Addr string `default:":8090" help:"Listen address"`
}

func (c *ServeCmd) Run() error {
	server := remote.NewServer()
	server.Register(taggers.NewTokenizer("tokens"))
	server.Register(taggers.NewSentenceGrouper("sentences", "tokens"))

	mux := http.NewServeMux()
	mux.Handle("/tag", server)
	logging.Info("tagging server listening", "addr", c.Addr, "taggers", server.Taggers())
	return http.ListenAndServe(c.Addr, mux)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("strata %s (sqlite driver: %s/%s)\n",
		version, storage.DriverName(), storage.DriverType())
	return nil
}

func baseName(path string) string {
	base := path
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("strata"),
		kong.Description("strata - layered text annotation framework"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	level := logging.LevelInfo
	if CLI.Verbose {
		level = logging.LevelDebug
	}
	logging.InitLogger(level, logging.FormatText)
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
