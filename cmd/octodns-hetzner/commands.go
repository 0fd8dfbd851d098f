package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/octodns/octodns-hetzner/internal/config"
	"github.com/octodns/octodns-hetzner/internal/reconciler"
	"github.com/octodns/octodns-hetzner/internal/zonefile"
	"github.com/octodns/octodns-hetzner/pkg/zone"
)

func newSyncCmd(a *app) *cobra.Command {
	var doit bool

	cmd := &cobra.Command{
		Use:   "sync [zone...]",
		Short: "Plan, and with --doit apply, changes for configured zones",
		Long: `Sync compares each configured zone file with the live state of its targets
and prints the planned changes. Nothing is changed unless --doit is given.
With zone arguments only those zones are synced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			zones, err := selectZones(a.cfg, args)
			if err != nil {
				return err
			}

			var targets []string
			for _, z := range zones {
				targets = append(targets, z.Targets...)
			}
			registry, err := a.providers(targets...)
			if err != nil {
				return err
			}

			rec := reconciler.New(registry,
				reconciler.WithLogger(a.logger),
				reconciler.WithConfig(reconciler.Config{DryRun: !doit, Lenient: a.cfg.Lenient}),
			)
			result, err := rec.Reconcile(cmd.Context(), zones)
			if err != nil {
				return err
			}

			printResult(cmd.OutOrStdout(), result)
			if result.HasErrors() {
				return fmt.Errorf("sync finished with errors")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&doit, "doit", false, "apply the planned changes")
	return cmd
}

// selectZones returns the configured zones named in args, or all of them.
func selectZones(cfg *config.Config, args []string) ([]config.ZoneConfig, error) {
	if len(args) == 0 {
		return cfg.Zones, nil
	}
	zones := make([]config.ZoneConfig, 0, len(args))
	for _, name := range args {
		z, ok := cfg.Zone(name)
		if !ok {
			return nil, fmt.Errorf("zone %q is not configured", name)
		}
		zones = append(zones, z)
	}
	return zones, nil
}

func printResult(w io.Writer, result *reconciler.Result) {
	var zone, target string
	for _, a := range result.Actions {
		if a.Zone != zone || a.Provider != target {
			zone, target = a.Zone, a.Provider
			fmt.Fprintf(w, "* %s -> %s\n", zone, target)
		}
		fmt.Fprintf(w, "    %s\n", a.String())
	}
	fmt.Fprint(w, result.Summary())
}

func newDumpCmd(a *app) *cobra.Command {
	var (
		providerName string
		output       string
	)

	cmd := &cobra.Command{
		Use:   "dump <zone>",
		Short: "Write a provider's live zone as a zone file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.provider(providerName)
			if err != nil {
				return err
			}

			name := args[0]
			if !strings.HasSuffix(name, ".") {
				name += "."
			}
			z, err := zone.New(name)
			if err != nil {
				return err
			}

			exists, err := p.Populate(cmd.Context(), z, false, a.cfg.Lenient)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("zone %s does not exist in %s", name, providerName)
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return zonefile.Write(w, z)
		},
	}

	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "provider instance to read from")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	_ = cmd.MarkFlagRequired("provider")
	return cmd
}

func newListZonesCmd(a *app) *cobra.Command {
	var providerName string

	cmd := &cobra.Command{
		Use:   "list-zones",
		Short: "List the zones a provider can see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.provider(providerName)
			if err != nil {
				return err
			}
			zones, err := p.ListZones(cmd.Context())
			if err != nil {
				return err
			}
			for _, z := range zones {
				fmt.Fprintln(cmd.OutOrStdout(), z)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&providerName, "provider", "p", "", "provider instance to query")
	_ = cmd.MarkFlagRequired("provider")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "octodns-hetzner %s (built %s, %s)\n", Version, BuildDate, runtime.Version())
		},
	}
}
