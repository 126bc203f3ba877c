package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/gao-dev/doclife/internal/naming"
	"github.com/gao-dev/doclife/internal/types"
)

var namingCmd = &cobra.Command{
	Use:     "naming",
	GroupID: "maint",
	Short:   "Validate and generate compliant document filenames",
}

var namingValidateCmd = &cobra.Command{
	Use:   "validate <filename...>",
	Short: "Check filenames against the naming conventions",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		failures := 0
		for _, arg := range args {
			base := filepath.Base(arg)
			if err := naming.Validate(base); err != nil {
				failures++
				fmt.Printf("✗ %s: %v\n", arg, err)
			} else if !quietFlag {
				fmt.Printf("✓ %s\n", arg)
			}
		}
		if failures > 0 {
			FatalError("%d filename(s) are not compliant", failures)
		}
	},
}

var (
	namingType    string
	namingSubject string
)

var namingSuggestCmd = &cobra.Command{
	Use:   "suggest <filename>",
	Short: "Suggest a compliant rename for a filename",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		docType := types.DocType(namingType)
		if namingType != "" && !docType.IsValid() {
			FatalError("invalid document type %q", namingType)
		}

		suggestion, err := naming.Suggest(filepath.Base(args[0]), docType, namingSubject)
		if err != nil {
			FatalError("%v", err)
		}
		fmt.Println(suggestion)
	},
}

var (
	namingVersion string
	namingNumber  int
)

var namingGenerateCmd = &cobra.Command{
	Use:   "generate <type> <subject>",
	Short: "Generate a compliant filename for a new document",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		docType := types.DocType(args[0])
		if !docType.IsValid() {
			FatalError("invalid document type %q (valid: %v)", args[0], types.AllDocTypes)
		}

		name, err := naming.Generate(docType, args[1], naming.GenerateOptions{
			Date:    time.Now(),
			Version: namingVersion,
			Number:  namingNumber,
		})
		if err != nil {
			FatalError("%v", err)
		}
		fmt.Println(name)
	},
}

func init() {
	namingSuggestCmd.Flags().StringVarP(&namingType, "type", "t", "", "Document type for the suggestion")
	namingSuggestCmd.Flags().StringVar(&namingSubject, "subject", "", "Subject to slugify (default: reuse the old stem)")
	namingGenerateCmd.Flags().StringVar(&namingVersion, "version", "", "Version segment (default 1.0)")
	namingGenerateCmd.Flags().IntVar(&namingNumber, "number", 0, "ADR sequence number")
	namingCmd.AddCommand(namingValidateCmd, namingSuggestCmd, namingGenerateCmd)
	rootCmd.AddCommand(namingCmd)
}
