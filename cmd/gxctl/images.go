package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gxshared/internal/imagehost"
)

func imageClient() (*imagehost.Client, error) {
	return imagehost.New(imagehost.Options{
		CloudName: cfg.ImageCloudName,
		APIKey:    cfg.ImageAPIKey,
		APISecret: cfg.ImageAPISecret,
		Logger:    logger,
		Debug:     debug,
	})
}

// imageSource reads a local file, or passes URLs and data URIs through.
func imageSource(arg string) (imagehost.Source, error) {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") || strings.HasPrefix(arg, "data:") {
		return imagehost.Ref(arg), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return imagehost.Source{}, fmt.Errorf("reading image: %w", err)
	}
	return imagehost.Bytes(data), nil
}

var uploadImageCmd = &cobra.Command{
	Use:     "upload-image <file|url> <name>",
	Short:   "Upload a menu item or category image",
	GroupID: "images",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		c, err := imageClient()
		if err != nil {
			return err
		}
		src, err := imageSource(args[0])
		if err != nil {
			return err
		}

		var res imagehost.UploadResult
		switch kind {
		case "item":
			res, err = c.UploadMenuItemImage(cmd.Context(), src, args[1])
		case "category":
			res, err = c.UploadMenuCategoryImage(cmd.Context(), src, args[1])
		default:
			return fmt.Errorf("unknown kind %q (must be item or category)", kind)
		}
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res, fmt.Sprintf("%s %s", res.PublicID, res.SecureURL))
	},
}

var deleteImageCmd = &cobra.Command{
	Use:     "delete-image <public-id>",
	Short:   "Delete an uploaded image",
	GroupID: "images",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := imageClient()
		if err != nil {
			return err
		}
		ok, err := c.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("image %s not found", args[0])
		}
		return printResult(cmd.OutOrStdout(), map[string]string{"status": "deleted", "publicId": args[0]}, "Deleted "+args[0])
	},
}

var imageURLOpts imagehost.URLOptions

var imageURLCmd = &cobra.Command{
	Use:     "image-url <public-id>",
	Short:   "Print a delivery URL for an uploaded image",
	GroupID: "images",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := imageClient()
		if err != nil {
			return err
		}
		u, err := c.URL(args[0], imageURLOpts)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), map[string]string{"url": u}, u)
	},
}

func init() {
	uploadImageCmd.Flags().String("kind", "item", "image kind: item or category")

	imageURLCmd.Flags().IntVar(&imageURLOpts.Width, "width", 0, "width in pixels")
	imageURLCmd.Flags().IntVar(&imageURLOpts.Height, "height", 0, "height in pixels")
	imageURLCmd.Flags().IntVar(&imageURLOpts.Quality, "quality", 0, "quality 1-100")
	imageURLCmd.Flags().StringVar(&imageURLOpts.Crop, "crop", "", "crop mode (default fill when sized)")
	imageURLCmd.Flags().StringVar(&imageURLOpts.Format, "format", "", "output format, e.g. webp")
}
