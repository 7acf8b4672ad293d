// cmd/tools/catalog-tool/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"card-program-wizard/pkg/registry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var catalogPath string

	root := &cobra.Command{
		Use:          "catalog-tool",
		Short:        "Inspect and maintain the wizard question catalog",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&catalogPath, "path", "configs/questions.json", "path to the catalog file")

	root.AddCommand(
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the catalog file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cat, err := registry.LoadRegistry(catalogPath)
				if err != nil {
					return fmt.Errorf("failed to load catalog: %w", err)
				}
				if err := cat.Validate(); err != nil {
					return fmt.Errorf("catalog validation failed: %w", err)
				}
				cmd.Printf("Catalog validation passed. Found %d questions.\n", len(cat.Questions))
				return nil
			},
		},
		&cobra.Command{
			Use:   "export",
			Short: "Write the built-in catalog to --path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := save(registry.Default(), catalogPath); err != nil {
					return err
				}
				cmd.Printf("Exported default catalog to %s\n", catalogPath)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <field> <property> <value>",
			Short: "Update one property of a question",
			Long:  "Properties: question, placeholder, help, required, minLength, maxLength, minimum.",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := setProperty(catalogPath, args[0], args[1], args[2]); err != nil {
					return err
				}
				cmd.Printf("Updated %s.%s to %s\n", args[0], args[1], args[2])
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "Print the questions in step order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cat, err := registry.LoadRegistry(catalogPath)
				if err != nil {
					return fmt.Errorf("failed to load catalog: %w", err)
				}
				for _, q := range cat.Questions {
					cmd.Printf("%2d  %-16s %-14s %s\n", q.Step, q.Field, q.Type, q.Question)
				}
				return nil
			},
		},
	)

	return root
}

func setProperty(path, field, property, value string) error {
	cat, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	idx := -1
	for i := range cat.Questions {
		if cat.Questions[i].Field == field {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("question %s not found", field)
	}
	q := &cat.Questions[idx]

	switch property {
	case "question":
		q.Question = value
	case "placeholder":
		q.Placeholder = value
	case "help":
		q.Help = value
	case "required":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid required value: %w", err)
		}
		q.Required = b
	case "minLength", "maxLength", "minimum":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s value: %w", property, err)
		}
		switch property {
		case "minLength":
			q.MinLength = &n
		case "maxLength":
			q.MaxLength = &n
		default:
			q.Minimum = &n
		}
	default:
		return fmt.Errorf("unknown property: %s", property)
	}

	if err := cat.Validate(); err != nil {
		return fmt.Errorf("update leaves catalog invalid: %w", err)
	}
	return save(cat, path)
}

func save(cat *registry.QuestionCatalog, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := cat.Save(path); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}
