package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math/rand/v2"
	"net/http"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Alturino/catalog/internal/log"
	inOtel "github.com/Alturino/catalog/internal/otel"
	"github.com/Alturino/catalog/internal/validate"
	"github.com/Alturino/catalog/product/internal/otel"
)

const (
	DirProducts = "products"

	suffixLength  = 7
	suffixCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxAttempts   = 100

	// stored names stay well inside the photo column
	maxFilenameLength  = 100
	maxExtensionLength = 16
)

var invalidFilenameChars = regexp.MustCompile(`[^-\w.]`)

// MediaStorage keeps uploaded files on an afero filesystem. Stored names are
// slash separated paths relative to the filesystem root.
type MediaStorage struct {
	fs afero.Fs
}

func NewMediaStorage(fs afero.Fs) *MediaStorage {
	return &MediaStorage{fs: fs}
}

// NewOsMediaStorage roots the storage at dir on the local disk.
func NewOsMediaStorage(dir string) (*MediaStorage, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed creating media root=%s with error=%w", dir, err)
	}
	return NewMediaStorage(afero.NewBasePathFs(osFs, dir)), nil
}

func (s *MediaStorage) Fs() afero.Fs {
	return s.fs
}

// Read returns the content stored under name.
func (s *MediaStorage) Read(name string) ([]byte, error) {
	return afero.ReadFile(s.fs, fsPath(name))
}

// Save writes content to dir/filename, or to dir/<stem>_<random><ext> when
// that name is taken, and returns the stored name.
func (s *MediaStorage) Save(c context.Context, dir string, filename string, content []byte) (string, error) {
	c, span := otel.Tracer.Start(c, "MediaStorage Save")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "MediaStorage Save").
		Str(log.KeyFilename, filename).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "creating media directory").Logger()
	logger.Trace().Msg("creating media directory")
	if err := s.fs.MkdirAll(fsPath(dir), 0o755); err != nil {
		err = fmt.Errorf("failed creating media directory=%s with error=%w", dir, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return "", err
	}
	logger.Trace().Msg("created media directory")

	name := ValidFilename(filename)
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	logger = logger.With().Str(log.KeyProcess, "writing media file").Logger()
	logger.Trace().Msg("writing media file")
	candidate := path.Join(dir, name)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.create(candidate, content)
		if err == nil {
			logger.Info().Str(log.KeyMediaPath, candidate).Msg("wrote media file")
			return candidate, nil
		}
		if !errors.Is(err, os.ErrExist) {
			err = fmt.Errorf("failed writing media file=%s with error=%w", candidate, err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return "", err
		}
		candidate = path.Join(dir, fmt.Sprintf("%s_%s%s", stem, randomSuffix(), ext))
	}

	err := fmt.Errorf("failed finding a free name for media file=%s", name)
	inOtel.RecordError(err, span)
	logger.Error().Err(err).Msg(err.Error())
	return "", err
}

// Remove deletes a stored file. A missing file is not an error.
func (s *MediaStorage) Remove(c context.Context, name string) error {
	c, span := otel.Tracer.Start(c, "MediaStorage Remove")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "MediaStorage Remove").
		Str(log.KeyMediaPath, name).
		Str(log.KeyProcess, "removing media file").
		Logger()

	logger.Trace().Msg("removing media file")
	if err := s.fs.Remove(fsPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		err = fmt.Errorf("failed removing media file=%s with error=%w", name, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("removed media file")
	return nil
}

// fsPath anchors a stored name at the filesystem root, where the http handler
// looks for it.
func fsPath(name string) string {
	return "/" + strings.TrimPrefix(name, "/")
}

func (s *MediaStorage) create(name string, content []byte) error {
	name = fsPath(name)
	exists, err := afero.Exists(s.fs, name)
	if err != nil {
		return err
	}
	if exists {
		return os.ErrExist
	}

	f, err := s.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err = f.Write(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Handler serves stored files read-only under prefix.
func (s *MediaStorage) Handler(prefix string) http.Handler {
	fileServer := http.FileServer(afero.NewHttpFs(afero.NewReadOnlyFs(s.fs)).Dir("/"))
	return otelhttp.NewHandler(http.StripPrefix(strings.TrimSuffix(prefix, "/"), fileServer), "media")
}

// ValidFilename strips directories, turns spaces into underscores and drops
// anything that is not alphanumeric, dash, underscore or dot. Long names are
// cut so a random suffix still fits within maxFilenameLength.
func ValidFilename(filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	name = strings.ReplaceAll(name, " ", "_")
	name = invalidFilenameChars.ReplaceAllString(name, "")
	if name == "" || name == "." || name == ".." {
		return "file"
	}

	ext := path.Ext(name)
	if len(ext) > maxExtensionLength {
		ext = ext[:maxExtensionLength]
	}
	stem := strings.TrimSuffix(name, path.Ext(name))
	if maxStem := maxFilenameLength - len(ext) - suffixLength - 1; len(stem) > maxStem {
		stem = stem[:maxStem]
	}
	if stem == "" {
		stem = "file"
	}
	return stem + ext
}

func randomSuffix() string {
	b := make([]byte, suffixLength)
	for i := range b {
		b[i] = suffixCharset[rand.IntN(len(suffixCharset))]
	}
	return string(b)
}

// ValidateImage accepts gif, jpeg and png content.
func ValidateImage(content []byte) error {
	if _, _, err := image.DecodeConfig(bytes.NewReader(content)); err != nil {
		return validate.NewFieldError("photo", validate.MsgImage)
	}
	return nil
}
