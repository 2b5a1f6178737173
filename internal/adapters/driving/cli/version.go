package cli

import (
	"encoding/json"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/whis/internal/adapters/driven/artifacts"
)

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and artifact format information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output version information as JSON")
	rootCmd.AddCommand(versionCmd)
}

type versionInfo struct {
	Version        string `json:"version"`
	GoVersion      string `json:"go_version"`
	Platform       string `json:"platform"`
	ArtifactFormat int    `json:"artifact_format"`
}

func currentVersionInfo() versionInfo {
	return versionInfo{
		Version:        version,
		GoVersion:      runtime.Version(),
		Platform:       runtime.GOOS + "/" + runtime.GOARCH,
		ArtifactFormat: artifacts.FormatVersion,
	}
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := currentVersionInfo()
	if versionJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	cmd.Printf("whis version %s (%s, %s)\n", info.Version, info.GoVersion, info.Platform)
	cmd.Printf("artifact format %d\n", info.ArtifactFormat)
	return nil
}
