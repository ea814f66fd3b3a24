// Command ontology queries the KEGG BRITE, Gene Ontology and MetaCyc
// hierarchies built from local reference dumps.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/hallamlab/Genome-announcements/core/errors"
	"github.com/hallamlab/Genome-announcements/core/geneontology"
	"github.com/hallamlab/Genome-announcements/core/lineage"
	"github.com/hallamlab/Genome-announcements/core/ontology"
	"github.com/hallamlab/Genome-announcements/core/sqlite"
	"github.com/hallamlab/Genome-announcements/internal/config"
	"github.com/hallamlab/Genome-announcements/internal/logging"
	"github.com/hallamlab/Genome-announcements/internal/refdata"
)

const version = "0.1.0"

// jsonMarshalIndent is injectable for testing.
var jsonMarshalIndent = json.MarshalIndent

// CLI defines the command-line interface for ontology.
type CLI struct {
	// Global flags
	ConfigPath string `name:"config" short:"c" help:"Configuration file" default:"ontology.yaml" type:"path"`
	DataDir    string `name:"data-dir" help:"Reference data directory (overrides config)" type:"path"`
	LogLevel   string `name:"log-level" help:"Log level: debug, info, warn, error (overrides config)"`
	LogFormat  string `name:"log-format" help:"Log format: text, json (overrides config)"`

	Brite   BriteGroup   `cmd:"" help:"KEGG BRITE orthology queries"`
	GO      GOGroup      `cmd:"" name:"go" help:"Gene Ontology queries"`
	MetaCyc MetaCycGroup `cmd:"" name:"metacyc" help:"MetaCyc class hierarchy queries"`
	Cache   CacheGroup   `cmd:"" help:"Parsed hierarchy snapshots"`
	Config  ConfigGroup  `cmd:"" help:"Configuration file management"`
	Version VersionCmd   `cmd:"" help:"Print version information"`
}

// env is bound into every command's Run method.
type env struct {
	ctx     context.Context
	out     io.Writer
	cfg     *config.Config
	cfgPath string
	lib     *refdata.Library
}

func (e *env) library() (*refdata.Library, error) {
	if e.lib == nil {
		lib, err := refdata.Open(e.cfg)
		if err != nil {
			return nil, err
		}
		e.lib = lib
	}
	return e.lib, nil
}

func (e *env) close() {
	if e.lib != nil {
		e.lib.Close()
	}
}

func (e *env) printf(format string, args ...any) {
	fmt.Fprintf(e.out, format, args...)
}

func (e *env) printJSON(v any) error {
	data, err := jsonMarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	e.printf("%s\n", data)
	return nil
}

func (e *env) printLines(lines []string) {
	for _, l := range lines {
		e.printf("%s\n", l)
	}
}

func printLineages(e *env, paths [][]string) {
	for _, p := range paths {
		e.printf("%s\n", strings.Join(p, " > "))
	}
}

func formatDepths(ds lineage.DepthSet) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = fmt.Sprint(d)
	}
	return strings.Join(parts, " ")
}

func whitelistSet(ids []string) ontology.IDSet {
	if len(ids) == 0 {
		return nil
	}
	return ontology.NewIDSet(ids...)
}

// hierarchyResolver returns the resolver of h after checking id is registered.
func hierarchyResolver(h *ontology.Hierarchy, id string) (*lineage.Resolver, error) {
	if !h.Terms.Has(id) {
		return nil, errors.NewNotFound("term", id)
	}
	return lineage.New(h.Index)
}

// BriteGroup contains KEGG BRITE queries.
type BriteGroup struct {
	Term      BriteTermCmd      `cmd:"" help:"Show a BRITE term"`
	Lineage   BriteLineageCmd   `cmd:"" help:"List every root-to-term path"`
	Depths    BriteDepthsCmd    `cmd:"" help:"Show the depth-set of a term"`
	Ancestors BriteAncestorsCmd `cmd:"" help:"List the ancestors of a term at a depth"`
	Members   BriteMembersCmd   `cmd:"" help:"List the members of a subtree"`
	Aggregate BriteAggregateCmd `cmd:"" help:"Map terms onto top-level categories"`
}

// BriteTermCmd shows one term.
type BriteTermCmd struct {
	ID string `arg:"" help:"Term id (e.g. K00844, M00010)"`
}

func (c *BriteTermCmd) Run(e *env) error {
	lib, err := e.library()
	if err != nil {
		return err
	}
	h, err := lib.Brite(e.ctx)
	if err != nil {
		return err
	}
	t, err := h.Terms.Lookup(c.ID)
	if err != nil {
		return err
	}
	return e.printJSON(t)
}

// BriteLineageCmd lists lineages.
type BriteLineageCmd struct {
	ID string `arg:"" help:"Term id"`
}

func (c *BriteLineageCmd) Run(e *env) error {
	r, err := briteResolver(e, c.ID)
	if err != nil {
		return err
	}
	printLineages(e, r.AllLineages(c.ID))
	return nil
}

// BriteDepthsCmd shows a depth-set.
type BriteDepthsCmd struct {
	ID string `arg:"" help:"Term id"`
}

func (c *BriteDepthsCmd) Run(e *env) error {
	r, err := briteResolver(e, c.ID)
	if err != nil {
		return err
	}
	e.printf("%s\n", formatDepths(r.DepthsOf(c.ID)))
	return nil
}

// BriteAncestorsCmd lists the ancestor frontier at a depth.
type BriteAncestorsCmd struct {
	ID        string   `arg:"" help:"Term id"`
	Depth     int      `name:"depth" short:"d" required:"" help:"Target depth"`
	Whitelist []string `name:"whitelist" sep:"," help:"Only search through these ids"`
}

func (c *BriteAncestorsCmd) Run(e *env) error {
	r, err := briteResolver(e, c.ID)
	if err != nil {
		return err
	}
	e.printLines(r.AncestorsAtDepth(c.ID, c.Depth, whitelistSet(c.Whitelist)))
	return nil
}

// BriteMembersCmd lists subtree members.
type BriteMembersCmd struct {
	ID        string `arg:"" help:"Subtree root id"`
	Whitelist bool   `name:"whitelist" help:"Include every descendant regardless of other parents"`
}

func (c *BriteMembersCmd) Run(e *env) error {
	r, err := briteResolver(e, c.ID)
	if err != nil {
		return err
	}
	e.printLines(r.MembersOf(c.ID, c.Whitelist).Sorted())
	return nil
}

// BriteAggregateCmd maps terms onto categories.
type BriteAggregateCmd struct {
	IDs []string `arg:"" name:"id" help:"Term ids"`
}

func (c *BriteAggregateCmd) Run(e *env) error {
	lib, err := e.library()
	if err != nil {
		return err
	}
	h, err := lib.Brite(e.ctx)
	if err != nil {
		return err
	}
	r, err := lineage.New(h.Index)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGROUP\tCATEGORY")
	for _, id := range c.IDs {
		if !h.Terms.Has(id) {
			logging.Warn("unknown term skipped", "id", id)
			continue
		}
		for _, cat := range r.Aggregate(id, e.cfg.KEGG.CategoryDepths) {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", id, cat.Group, cat.Category)
		}
	}
	return tw.Flush()
}

func briteResolver(e *env, id string) (*lineage.Resolver, error) {
	lib, err := e.library()
	if err != nil {
		return nil, err
	}
	h, err := lib.Brite(e.ctx)
	if err != nil {
		return nil, err
	}
	return hierarchyResolver(h, id)
}

// GOGroup contains Gene Ontology queries.
type GOGroup struct {
	Term      GOTermCmd      `cmd:"" help:"Show a GO term"`
	Roots     GORootsCmd     `cmd:"" help:"List the roots of a relation"`
	Depths    GODepthsCmd    `cmd:"" help:"Show the depths of a GO term"`
	Ancestors GOAncestorsCmd `cmd:"" help:"List the is-a ancestors of a term at a depth"`
}

// GOTermCmd shows one GO term and its parents per relation.
type GOTermCmd struct {
	ID string `arg:"" help:"GO id (e.g. GO:0008150)"`
}

func (c *GOTermCmd) Run(e *env) error {
	o, err := geneOntology(e)
	if err != nil {
		return err
	}
	t, err := o.Terms.Lookup(c.ID)
	if err != nil {
		return err
	}
	parents := make(map[string][]string)
	for _, rel := range o.RelationLabels() {
		if ps := o.Trees[rel].Parents(c.ID); len(ps) > 0 {
			parents[rel] = ps
		}
	}
	return e.printJSON(struct {
		*ontology.Term
		Parents map[string][]string `json:"parents,omitempty"`
	}{t, parents})
}

// GORootsCmd lists the roots of one relation.
type GORootsCmd struct {
	Relation string `name:"relation" short:"r" default:"is a" help:"Relation label"`
}

func (c *GORootsCmd) Run(e *env) error {
	o, err := geneOntology(e)
	if err != nil {
		return err
	}
	if _, err := o.Tree(c.Relation); err != nil {
		return err
	}
	e.printLines(o.Roots[c.Relation])
	return nil
}

// GODepthsCmd shows the first-seen depth and the full depth-set.
type GODepthsCmd struct {
	ID string `arg:"" help:"GO id"`
}

func (c *GODepthsCmd) Run(e *env) error {
	o, r, err := goResolver(e, c.ID)
	if err != nil {
		return err
	}
	d, _ := o.DepthOf(c.ID)
	e.printf("depth: %d\n", d)
	e.printf("depth-set: %s\n", formatDepths(r.DepthsOf(c.ID)))
	return nil
}

// GOAncestorsCmd lists the is-a ancestor frontier at a depth.
type GOAncestorsCmd struct {
	ID        string   `arg:"" help:"GO id"`
	Depth     int      `name:"depth" short:"d" required:"" help:"Target depth"`
	Whitelist []string `name:"whitelist" sep:"," help:"Only search through these ids"`
}

func (c *GOAncestorsCmd) Run(e *env) error {
	_, r, err := goResolver(e, c.ID)
	if err != nil {
		return err
	}
	e.printLines(r.AncestorsAtDepth(c.ID, c.Depth, whitelistSet(c.Whitelist)))
	return nil
}

func geneOntology(e *env) (*geneontology.Ontology, error) {
	lib, err := e.library()
	if err != nil {
		return nil, err
	}
	return lib.GeneOntology(e.ctx)
}

func goResolver(e *env, id string) (*geneontology.Ontology, *lineage.Resolver, error) {
	o, err := geneOntology(e)
	if err != nil {
		return nil, nil, err
	}
	if !o.Terms.Has(id) {
		return nil, nil, errors.NewNotFound("term", id)
	}
	r, err := lineage.New(o.IsA())
	if err != nil {
		return nil, nil, err
	}
	return o, r, nil
}

// MetaCycGroup contains MetaCyc queries.
type MetaCycGroup struct {
	Term       MetaCycTermCmd       `cmd:"" help:"Show a MetaCyc class"`
	Placements MetaCycPlacementsCmd `cmd:"" help:"List every placement of a class"`
	Lineage    MetaCycLineageCmd    `cmd:"" help:"List every root-to-class path"`
}

// MetaCycTermCmd shows one class.
type MetaCycTermCmd struct {
	ID string `arg:"" help:"Class id (e.g. PWY-5484)"`
}

func (c *MetaCycTermCmd) Run(e *env) error {
	h, err := metaCyc(e)
	if err != nil {
		return err
	}
	t, err := h.Terms.Lookup(c.ID)
	if err != nil {
		return err
	}
	return e.printJSON(t)
}

// MetaCycPlacementsCmd lists the DAG nodes of a class.
type MetaCycPlacementsCmd struct {
	ID string `arg:"" help:"Class id"`
}

func (c *MetaCycPlacementsCmd) Run(e *env) error {
	h, err := metaCyc(e)
	if err != nil {
		return err
	}
	if !h.Terms.Has(c.ID) {
		return errors.NewNotFound("term", c.ID)
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tDEPTH\tPARENT")
	for _, id := range h.Placements(c.ID) {
		n := h.Node(id)
		parent := "-"
		if p := h.Node(n.Parent); p != nil {
			parent = p.TermID
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\n", id, n.Depth, parent)
	}
	return tw.Flush()
}

// MetaCycLineageCmd lists lineages of a class.
type MetaCycLineageCmd struct {
	ID string `arg:"" help:"Class id"`
}

func (c *MetaCycLineageCmd) Run(e *env) error {
	h, err := metaCyc(e)
	if err != nil {
		return err
	}
	r, err := hierarchyResolver(h, c.ID)
	if err != nil {
		return err
	}
	printLineages(e, r.AllLineages(c.ID))
	return nil
}

func metaCyc(e *env) (*ontology.Hierarchy, error) {
	lib, err := e.library()
	if err != nil {
		return nil, err
	}
	return lib.MetaCyc(e.ctx)
}

// CacheGroup manages snapshots.
type CacheGroup struct {
	List  CacheListCmd  `cmd:"" help:"List stored snapshots"`
	Clear CacheClearCmd `cmd:"" help:"Delete stored snapshots"`
}

// CacheListCmd lists snapshots.
type CacheListCmd struct{}

func (c *CacheListCmd) Run(e *env) error {
	lib, err := e.library()
	if err != nil {
		return err
	}
	if lib.Store() == nil {
		e.printf("snapshot cache disabled\n")
		return nil
	}
	snaps, err := lib.Store().List(e.ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tID\tTERMS\tEDGES\tBYTES\tCREATED")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", s.Name, s.ID, s.Terms, s.Edges, s.Bytes, s.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

// CacheClearCmd deletes snapshots.
type CacheClearCmd struct {
	Names []string `arg:"" optional:"" name:"name" help:"Snapshot names (default: all)"`
}

func (c *CacheClearCmd) Run(e *env) error {
	lib, err := e.library()
	if err != nil {
		return err
	}
	store := lib.Store()
	if store == nil {
		e.printf("snapshot cache disabled\n")
		return nil
	}
	if len(c.Names) == 0 {
		n, err := store.Clear(e.ctx)
		if err != nil {
			return err
		}
		e.printf("removed %d snapshots\n", n)
		return nil
	}
	for _, name := range c.Names {
		if err := store.Delete(e.ctx, name); err != nil {
			return err
		}
		e.printf("removed %s\n", name)
	}
	return nil
}

// ConfigGroup manages the configuration file.
type ConfigGroup struct {
	Init ConfigInitCmd `cmd:"" help:"Write the effective configuration to the config path"`
}

// ConfigInitCmd writes a configuration file.
type ConfigInitCmd struct {
	Force bool `name:"force" short:"f" help:"Overwrite an existing file"`
}

func (c *ConfigInitCmd) Run(e *env) error {
	if _, err := os.Stat(e.cfgPath); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", e.cfgPath)
	}
	if err := e.cfg.Save(e.cfgPath); err != nil {
		return err
	}
	e.printf("wrote %s\n", e.cfgPath)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(e *env) error {
	info := sqlite.GetInfo()
	e.printf("ontology version %s\n", version)
	e.printf("sqlite driver: %s (%s)\n", info.Package, info.DriverType)
	return nil
}

// run parses args, loads configuration and runs the selected command.
func run(args []string, stdout io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("ontology"),
		kong.Description("Hierarchical ontology queries over KEGG BRITE, Gene Ontology and MetaCyc"),
		kong.UsageOnError(),
		kong.Writers(stdout, os.Stderr),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cli.ConfigPath)
	if err != nil {
		return err
	}
	if cli.DataDir != "" {
		cfg.DataDir = cli.DataDir
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Logging.Format = cli.LogFormat
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return errors.NewValidation("logging.level", err.Error())
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return errors.NewValidation("logging.format", err.Error())
	}
	logging.InitLogger(level, format)

	e := &env{
		ctx:     logging.WithRunID(context.Background(), uuid.New().String()),
		out:     stdout,
		cfg:     cfg,
		cfgPath: cli.ConfigPath,
	}
	defer e.close()
	return kctx.Run(e)
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ontology: %v\n", err)
		os.Exit(1)
	}
}
