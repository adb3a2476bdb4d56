package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/root-sector/access-audit-serializer/audit"
	"github.com/root-sector/access-audit-serializer/audit/store"
	"github.com/root-sector/access-audit-serializer/config"
	"github.com/root-sector/access-audit-serializer/interfaces"
	"github.com/root-sector/access-audit-serializer/security"
	"github.com/root-sector/access-audit-serializer/serializer"
	"github.com/root-sector/access-audit-serializer/types"
)

var (
	renderInput      string
	renderConfigFile string
	renderRoles      []string
	renderSkipErrors bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Serialize exported audit entries as the given roles would see them",
	Long: `Read audit entry envelopes (one JSON object per line) and print the
serialized document of each, redacted for the caller holding --role.

Without any role the caller holds no permission and sensitive field
groups (before/after snapshots, API payloads) are left out.`,
	Example: `  # Render as an auditor
  auditctl render --input entries.jsonl --role auditor

  # Render with full visibility using roles from a config file
  auditctl render -i entries.jsonl -c audit.yaml --role admin

  # Read from stdin
  cat entries.jsonl | auditctl render --role admin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(renderConfigFile)
		if err != nil {
			return err
		}
		if err := config.ApplyLogLevel(cfg); err != nil {
			return err
		}

		in := cmd.InOrStdin()
		if renderInput != "" && renderInput != "-" {
			f, err := os.Open(renderInput)
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			defer f.Close()
			in = f
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		var opts []serializer.Option
		var registry *prometheus.Registry
		if cfg.Metrics.Enabled {
			registry = prometheus.NewRegistry()
			opts = append(opts, serializer.WithMetrics(serializer.NewMetrics(registry, cfg.Metrics.Namespace)))
		}
		s := serializer.New(opts...)

		journal, closeJournal, err := openJournal(ctx, cfg, s)
		if err != nil {
			return err
		}
		defer closeJournal()

		sc := security.NewRoleTable(cfg.Roles).Context(renderRoles...)
		stats, err := render(ctx, in, cmd.OutOrStdout(), s, sc, journal, renderSkipErrors)
		log.Info().
			Int("rendered", stats.rendered).
			Int("skipped", stats.skipped).
			Msg("Render finished")
		if registry != nil {
			logMetrics(registry)
		}
		return err
	},
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the built-in audit entry discriminators",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range types.BuiltinTypes {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderInput, "input", "i", "-", "File with one entry envelope per line (- for stdin)")
	renderCmd.Flags().StringVarP(&renderConfigFile, "config", "c", "", "YAML configuration file")
	renderCmd.Flags().StringSliceVarP(&renderRoles, "role", "r", nil, "Role held by the caller (repeatable)")
	renderCmd.Flags().BoolVar(&renderSkipErrors, "skip-errors", false, "Skip entries that cannot be decoded or serialized")
}

type renderStats struct {
	rendered int
	skipped  int
}

// render serializes every envelope read from in and writes one document per line to out
func render(ctx context.Context, in io.Reader, out io.Writer, s interfaces.Serializer, sc interfaces.SecurityContext, journal interfaces.Journal, skipErrors bool) (renderStats, error) {
	var stats renderStats
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	enc := json.NewEncoder(out)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		doc, entry, err := renderLine(raw, s, sc)
		if err != nil {
			if skipErrors {
				stats.skipped++
				log.Warn().Err(err).Int("line", line).Msg("Skipping entry")
				continue
			}
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		if journal != nil {
			if err := journal.Record(audit.WithSource(ctx, "auditctl"), entry); err != nil {
				log.Warn().Err(err).Str("auditId", entry.ID()).Msg("Failed to journal entry")
			}
		}
		if err := enc.Encode(doc); err != nil {
			return stats, fmt.Errorf("failed to write document: %w", err)
		}
		stats.rendered++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed to read input: %w", err)
	}
	return stats, nil
}

func renderLine(raw []byte, s interfaces.Serializer, sc interfaces.SecurityContext) (*types.Document, types.AuditEntry, error) {
	entry, err := types.DecodeEnvelope(raw)
	if err != nil {
		return nil, nil, err
	}
	doc, err := s.Serialize(entry, sc)
	if err != nil {
		return nil, nil, err
	}
	return doc, entry, nil
}

// openJournal builds the journal configured in cfg, or nil when disabled
func openJournal(ctx context.Context, cfg *types.Config, s interfaces.Serializer) (interfaces.Journal, func(), error) {
	noop := func() {}
	if !cfg.Journal.Enabled {
		return nil, noop, nil
	}

	switch cfg.Journal.Sink {
	case types.JournalSinkMongo:
		st, disconnect, err := store.Connect(ctx, cfg.Journal.MongoURI, cfg.Journal.Database, cfg.Journal.Collection)
		if err != nil {
			return nil, noop, err
		}
		closeFn := func() {
			if err := disconnect(context.Background()); err != nil {
				log.Warn().Err(err).Msg("Failed to disconnect journal store")
			}
		}
		return audit.NewMultiJournal(audit.NewJournalLogger(s), audit.NewStoreJournal(s, st)), closeFn, nil
	default:
		return audit.NewJournalLogger(s), noop, nil
	}
}

func logMetrics(registry *prometheus.Registry) {
	families, err := registry.Gather()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to gather metrics")
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			value := m.GetCounter().GetValue() + m.GetGauge().GetValue()
			event := log.Info().Str("metric", mf.GetName()).Float64("value", value)
			for _, label := range m.GetLabel() {
				event = event.Str(label.GetName(), label.GetValue())
			}
			event.Msg("Metric")
		}
	}
}
