// inspiral init: scaffold a config file in the target directory.
package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/f9-o/inspiral/internal/core/config"
	"github.com/f9-o/inspiral/pkg/errs"
	"github.com/f9-o/inspiral/pkg/pprint"
)

func NewInitCmd() *cobra.Command {
	var (
		targetPath string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold inspiral.yaml (or inspiral.toml) in the current or given directory",
		Example: `  inspiral init
  inspiral init --path ./experiments --format toml`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if targetPath == "" {
				targetPath = "."
			}

			name, body, err := renderConfig(format)
			if err != nil {
				return err
			}
			outFile := filepath.Join(targetPath, name)
			if _, err := os.Stat(outFile); err == nil {
				return errs.Newf(errs.ErrConfig, "init", "%s already exists", outFile).
					WithAdvice("delete it first to reinitialise")
			}

			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return fmt.Errorf("create dir %q: %w", targetPath, err)
			}
			if err := os.WriteFile(outFile, body, 0644); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}

			pprint.Success("Created %s", outFile)
			if format == "toml" {
				pprint.Info("TOML files are not auto-discovered: run with --config %s", outFile)
			} else {
				pprint.Info("Edit it, then run: inspiral ui")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&targetPath, "path", ".", "Target directory")
	cmd.Flags().StringVar(&format, "format", "yaml", "Config format: yaml | toml")
	return cmd
}

// renderConfig returns the file name and content for the requested format.
func renderConfig(format string) (string, []byte, error) {
	switch format {
	case "yaml", "yml":
		return config.ProjectFile, []byte(config.DefaultConfigTemplate), nil
	case "toml":
		var buf bytes.Buffer
		buf.WriteString("# inspiral.toml: binary inspiral parameters\n\n")
		if err := toml.NewEncoder(&buf).Encode(config.Default()); err != nil {
			return "", nil, errs.Wrap(err, errs.ErrInternal, "init.encode_toml")
		}
		return "inspiral.toml", buf.Bytes(), nil
	default:
		return "", nil, errs.Newf(errs.ErrValidation, "init", "unknown format %q (want yaml | toml)", format)
	}
}
