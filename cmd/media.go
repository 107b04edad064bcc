package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lepostier/lepostier/internal/catalog"
	"github.com/lepostier/lepostier/internal/config"
	"github.com/lepostier/lepostier/internal/media"
	"github.com/lepostier/lepostier/internal/progress"
)

var setupMediaCmd = &cobra.Command{
	Use:   "setup-media",
	Short: "Create the media folder layout",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		created, err := media.Provision(cfg.Media.Root)
		if err != nil {
			return err
		}
		if len(created) == 0 {
			fmt.Printf("Media layout already complete under %s\n", cfg.Media.Root)
			return nil
		}
		for _, dir := range created {
			fmt.Printf("  created %s\n", dir)
		}
		return nil
	},
}

var scanMediaCmd = &cobra.Command{
	Use:   "scan-media",
	Short: "Report media counts and refresh the has_images flags",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		rep, err := media.Scan(cfg.Media.Root)
		if err != nil {
			return err
		}

		fmt.Printf("Media root: %s\n", rep.Root)
		for _, f := range rep.Folders {
			if !f.Exists {
				fmt.Printf("  %-12s (not found)\n", f.Folder)
				continue
			}
			fmt.Printf("  %-12s %d files\n", f.Folder, f.Count)
			if verbose {
				for _, s := range f.Samples {
					fmt.Printf("      - %s\n", s)
				}
			}
		}
		fmt.Printf("  images: %d, videos: %d\n", rep.Images, rep.Videos)

		if noFlags, _ := cmd.Flags().GetBool("no-flags"); noFlags {
			return nil
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()
		changed, err := media.UpdateFlags(cmd.Context(), catalog.NewStore(database), catalog.NewResolver(cfg.Media.Root, cfg.Media.URL))
		if err != nil {
			return err
		}
		fmt.Printf("Updated has_images on %d postcards\n", changed)
		return nil
	},
}

var syncFTPCmd = &cobra.Command{
	Use:   "sync-ftp",
	Short: "Mirror the media folders from the FTP host",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyFTPFlags(cmd, cfg)
		if cfg.FTP.Host == "" {
			return fmt.Errorf("ftp.host is not configured (set it in %s or %sFTP__HOST)", cfgFile, config.EnvPrefix)
		}
		limit, _ := cmd.Flags().GetInt("limit")

		syncer := &media.Syncer{
			Dial:       media.DialFTP(cfg.FTPAddr(), cfg.FTP.User, cfg.FTP.Password, 60*time.Second),
			Root:       cfg.Media.Root,
			RetryDelay: 5 * time.Second,
			Progress:   progress.NewReporter("Syncing media"),
		}
		fmt.Fprintf(os.Stderr, "Syncing %s from %s into %s\n", strings.Join(cfg.FTP.Folders, ", "), cfg.FTPAddr(), cfg.Media.Root)
		results, err := syncer.Sync(cmd.Context(), media.SyncOptions{
			RemotePath: cfg.FTP.Path,
			Folders:    cfg.FTP.Folders,
			Limit:      limit,
		})
		for _, r := range results {
			status := "ok"
			if r.Err != nil {
				status = r.Err.Error()
			}
			fmt.Printf("  %-12s found %d, downloaded %d, skipped %d, failed %d (%s)\n",
				r.Folder, r.Found, r.Downloaded, r.Skipped, r.Failed, status)
		}
		return err
	},
}

// applyFTPFlags lets one-off runs override the ftp config section.
func applyFTPFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		cfg.FTP.Host = v
	}
	if v, _ := cmd.Flags().GetString("user"); v != "" {
		cfg.FTP.User = v
	}
	if v, _ := cmd.Flags().GetString("password"); v != "" {
		cfg.FTP.Password = v
	}
	if v, _ := cmd.Flags().GetString("path"); v != "" {
		cfg.FTP.Path = v
	}
	if v, _ := cmd.Flags().GetString("folders"); v != "" {
		cfg.FTP.Folders = config.SplitAndTrim(v)
	}
	if len(cfg.FTP.Folders) == 0 {
		cfg.FTP.Folders = append([]string(nil), config.DefaultFTPFolders...)
	}
}

var thumbnailsCmd = &cobra.Command{
	Use:   "thumbnails",
	Short: "Generate missing vignettes from the large images",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		width, _ := cmd.Flags().GetInt("width")
		height, _ := cmd.Flags().GetInt("height")
		quality, _ := cmd.Flags().GetInt("quality")
		overwrite, _ := cmd.Flags().GetBool("overwrite")

		res, err := media.GenerateThumbnails(cmd.Context(), cfg.Media.Root, media.ThumbnailOptions{
			Width:     width,
			Height:    height,
			Quality:   quality,
			Overwrite: overwrite,
			Progress:  progress.NewReporter("Generating vignettes"),
		})
		if err != nil {
			return err
		}
		fmt.Printf("Generated %d, skipped %d, failed %d\n", res.Generated, res.Skipped, res.Failed)
		return nil
	},
}

func init() {
	scanMediaCmd.Flags().Bool("no-flags", false, "only report, do not touch the database")

	syncFTPCmd.Flags().String("host", "", "FTP host (overrides config)")
	syncFTPCmd.Flags().String("user", "", "FTP user (overrides config)")
	syncFTPCmd.Flags().String("password", "", "FTP password (overrides config)")
	syncFTPCmd.Flags().String("path", "", "remote directory holding the media folders")
	syncFTPCmd.Flags().String("folders", "", "comma-separated folders to sync")
	syncFTPCmd.Flags().Int("limit", 0, "maximum files per folder (0 = all)")

	thumbnailsCmd.Flags().Int("width", media.DefaultThumbWidth, "maximum vignette width")
	thumbnailsCmd.Flags().Int("height", media.DefaultThumbHeight, "maximum vignette height")
	thumbnailsCmd.Flags().Int("quality", media.DefaultThumbQuality, "JPEG quality")
	thumbnailsCmd.Flags().Bool("overwrite", false, "regenerate existing vignettes")

	rootCmd.AddCommand(setupMediaCmd, scanMediaCmd, syncFTPCmd, thumbnailsCmd)
}
