// Command kgcenginectl is the engine's process entry point: load
// configuration (file, environment, flags), assemble the Engine, serve its
// read-only introspection HTTP API, and shut down gracefully on
// SIGINT/SIGTERM. Grounded on cli/root.go's RootCmd/runServer/initConfig
// shape, adapted from RabbitMQ/CouchDB/JWT service wiring to the engine's
// own dependency graph.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/kgcengine/kgc/engine"
	"github.com/kgcengine/kgc/engineconfig"
	"github.com/kgcengine/kgc/httpapi"
	"github.com/kgcengine/kgc/rdf"
	"github.com/kgcengine/kgc/reasoner"
)

var (
	cfgFile     string
	ontologyFile string
	rulesFile   string
	v           = viper.New()
)

// ruleDoc is the on-disk shape of a rules file: a plain list of N3-style
// CONSTRUCT rules, parallel to reasoner.Rule.
type ruleDoc struct {
	Rules []struct {
		ID    string `yaml:"id"`
		Where string `yaml:"where"`
		Then  string `yaml:"then"`
	} `yaml:"rules"`
}

// rootCmd is kgcenginectl's single command: assemble the engine and serve
// its introspection API until interrupted.
var rootCmd = &cobra.Command{
	Use:   "kgcenginectl",
	Short: "runs the knowledge-graph workflow engine and its introspection API",
	Long: `kgcenginectl assembles the physics ontology, reasoner, tick executor,
transaction manager, knowledge-hook pipeline, and lockchain into one running
engine, then serves a read-only HTTP API over its tick history, receipts,
and active policy packs until interrupted.`,
	RunE: runEngine,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default search: $HOME/.kgcengine.yaml, ./.kgcengine.yaml)")
	rootCmd.PersistentFlags().StringVar(&ontologyFile, "ontology", "", "path to a Turtle file seeding the physics ontology graph")
	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules", "", "path to a YAML file of reasoner rules (id/where/then)")
	engineconfig.BindFlags(rootCmd, v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := engineconfig.Load(v, cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	quads, err := loadOntology(ontologyFile)
	if err != nil {
		return fmt.Errorf("load ontology: %w", err)
	}
	rules, err := loadRules(rulesFile)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	ctx := context.Background()
	eng, err := engine.New(ctx, cfg, quads, rules)
	if err != nil {
		return fmt.Errorf("assemble engine: %w", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			eng.Log.WithError(err).Error("close engine")
		}
	}()

	server := httpapi.New(httpapi.Config{
		Ticks:    eng,
		Receipts: eng.Lockchain,
		Packs:    eng.Policies,
		Log:      eng.Log,
	})

	go func() {
		eng.Log.Infof("introspection API listening on %s", cfg.HTTPAddr)
		if err := server.Start(cfg.HTTPAddr); err != nil && err != http.ErrServerClosed {
			eng.Log.WithError(err).Warn("introspection API stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	eng.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownGrace)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// loadOntology reads a Turtle file into the initial ontology quad set,
// defaulting an empty graph when no file is given.
func loadOntology(path string) ([]rdf.Quad, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	triples, err := rdf.ParseTurtle(data)
	if err != nil {
		return nil, err
	}
	quads := make([]rdf.Quad, len(triples))
	for i, t := range triples {
		quads[i] = t.WithGraph("")
	}
	return quads, nil
}

// loadRules reads a YAML rules file, defaulting to an empty rule set.
func loadRules(path string) ([]reasoner.Rule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc ruleDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	rules := make([]reasoner.Rule, len(doc.Rules))
	for i, r := range doc.Rules {
		rules[i] = reasoner.Rule{ID: r.ID, Where: r.Where, Then: r.Then}
	}
	return rules, nil
}
