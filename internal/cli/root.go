package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"galleryupload/internal/config"
	"galleryupload/internal/picker"
	"galleryupload/internal/repository"
	"galleryupload/internal/service"
	"galleryupload/internal/session"
	"galleryupload/pkg/logger"
	"galleryupload/pkg/utils"
)

var rootCmd = &cobra.Command{
	Use:          "galleryupload",
	Short:        "Pick images from a gallery and upload them one by one with retry",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("endpoint", config.DefaultEndpoint, "Upload endpoint")
	flags.String("token", "", "Bearer token sent with every upload")
	flags.String("platform", "android", "Request body variant (web, android, ios); web sends the picked file handle, android and ios read the file:// URI")
	flags.String("source", config.SourceLocal, "Gallery source (local, s3)")
	flags.String("dir", ".", "Gallery directory for the local source")
	flags.Int("limit", 10, "Maximum number of images to pick")
	flags.Bool("compress", true, "Compress images above the size threshold")
	flags.String("s3-bucket", "", "Gallery bucket for the s3 source")
	flags.String("s3-prefix", "", "Key prefix inside the gallery bucket")

	bind(flags.Lookup("log-level"), "LOG_LEVEL")
	bind(flags.Lookup("endpoint"), "UPLOAD_ENDPOINT")
	bind(flags.Lookup("token"), "UPLOAD_BEARER_TOKEN")
	bind(flags.Lookup("platform"), "UPLOAD_PLATFORM")
	bind(flags.Lookup("source"), "GALLERY_SOURCE")
	bind(flags.Lookup("dir"), "GALLERY_DIR")
	bind(flags.Lookup("limit"), "GALLERY_LIMIT")
	bind(flags.Lookup("compress"), "COMPRESS_ENABLED")
	bind(flags.Lookup("s3-bucket"), "S3_BUCKET_NAME")
	bind(flags.Lookup("s3-prefix"), "S3_PREFIX")
}

func bind(flag *pflag.Flag, key string) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Errorf("failed to bind flag %s: %w", flag.Name, err))
	}
}

type app struct {
	cfg     *config.Config
	log     *zap.Logger
	session *session.Session
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	gallery, err := newGallery(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	builder, err := service.NewBodyBuilder(cfg.Upload.Platform)
	if err != nil {
		return nil, err
	}

	proc := utils.NewImageProcessor(utils.JPEGCodec{}, log)
	client := &http.Client{Timeout: cfg.Upload.Timeout}
	uploader := service.NewUploadService(cfg, client, builder, proc, log)

	return &app{
		cfg:     cfg,
		log:     log,
		session: session.New(gallery, uploader, cfg.Gallery.Limit, cfg.Upload.BearerToken, log),
	}, nil
}

func newGallery(ctx context.Context, cfg *config.Config, log *zap.Logger) (picker.Gallery, error) {
	switch cfg.Gallery.Source {
	case config.SourceS3:
		repo, err := repository.NewS3Repository(ctx, &cfg.S3, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 repository: %w", err)
		}
		return picker.NewS3Gallery(repo, cfg.S3.Prefix, log), nil
	default:
		return picker.NewLocalGallery(cfg.Gallery.Dir, log), nil
	}
}
