// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/fedauth/pkg/federation/discovery"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

type lookupOptions struct {
	insecure    bool
	rootPEMFile string
	output      string
}

// newLookupCmd creates the lookup command, which prints the provider
// configuration proposed by an issuer's discovery document.
func newLookupCmd() *cobra.Command {
	opts := &lookupOptions{}

	cmd := &cobra.Command{
		Use:   "lookup <issuer>",
		Short: "Propose an upstream provider configuration from its issuer",
		Long: `Fetch the OpenID Connect discovery document of an issuer and print the
provider configuration derived from it. Nothing is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.insecure, "insecure", false, "Skip TLS certificate verification")
	cmd.Flags().StringVar(&opts.rootPEMFile, "root-pem", "", "PEM file with the root certificate to trust")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputYAML, "Output format (json or yaml)")

	return cmd
}

func runLookup(cmd *cobra.Command, issuer string, opts *lookupOptions) error {
	if opts.output != outputJSON && opts.output != outputYAML {
		return fmt.Errorf("unsupported output format %q", opts.output)
	}

	req := discovery.LookupRequest{Issuer: issuer, AllowInsecure: opts.insecure}
	if opts.rootPEMFile != "" {
		pem, err := os.ReadFile(opts.rootPEMFile)
		if err != nil {
			return fmt.Errorf("failed to read root certificate: %w", err)
		}
		req.RootPEM = string(pem)
	}

	proposal, err := discovery.NewResolver().Lookup(cmd.Context(), req)
	if err != nil {
		return err
	}
	return writeProposal(cmd.OutOrStdout(), proposal, opts.output)
}

func writeProposal(w io.Writer, p *discovery.Proposal, format string) error {
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("failed to encode proposal: %w", err)
	}
	return enc.Close()
}
