package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/rmesh/internal/assets"
	"github.com/Faultbox/rmesh/internal/config"
	"github.com/Faultbox/rmesh/internal/export"
	"github.com/Faultbox/rmesh/internal/logger"
	"github.com/Faultbox/rmesh/pkg/formats"
	"github.com/Faultbox/rmesh/pkg/mesh"
)

func cmdConvert(args []string) {
	flagSet := flag.NewFlagSet("convert", flag.ExitOnError)
	flags := config.RegisterFlags(flagSet)
	flagSet.Parse(args)

	if flagSet.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rmeshtool convert [options] <file.rmesh|dir>...")
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fail(err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fail(fmt.Errorf("initializing logger: %w", err))
	}
	defer logger.Sync()

	files, err := collectInputs(flagSet.Args(), logger.Named("convert"))
	if err != nil {
		fail(err)
	}
	if len(files) == 0 {
		fail(errors.New("no .rmesh files found"))
	}

	if err := os.MkdirAll(cfg.Export.OutputDir, 0755); err != nil {
		fail(fmt.Errorf("creating output dir: %w", err))
	}

	textures := buildTextureIndex(cfg.Textures, logger.Named("assets"))

	start := time.Now()
	errs := convertAll(cfg, files, textures, logger.Named("convert"))

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			logger.Error("conversion failed", zap.String("file", files[i]), zap.Error(err))
		}
	}

	hits, misses := textures.Stats()
	logger.Info("conversion finished",
		zap.Int("files", len(files)),
		zap.Int("failed", failed),
		zap.Int("texture_hits", hits),
		zap.Int("texture_misses", misses),
		zap.Duration("took", time.Since(start)))

	if failed > 0 {
		logger.Sync()
		os.Exit(1)
	}
}

// collectInputs expands directories into the .rmesh files below them.
// Files that would write to the same output name are reported.
func collectInputs(args []string, log *zap.Logger) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if !formats.IsRMeshFile(arg) {
				log.Warn("skipping non-RMesh file", zap.String("file", arg))
				continue
			}
			files = append(files, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && formats.IsRMeshFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", arg, err)
		}
	}

	sort.Strings(files)

	seen := make(map[string]string, len(files))
	for _, path := range files {
		stem := outputStem(path)
		if first, ok := seen[stem]; ok {
			log.Warn("output name collision, later file overwrites earlier",
				zap.String("output", stem),
				zap.String("first", first),
				zap.String("file", path))
			continue
		}
		seen[stem] = path
	}
	return files, nil
}

// outputStem is the output file name of an input without its extension.
func outputStem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func buildTextureIndex(cfg config.TexturesConfig, log *zap.Logger) *assets.TextureIndex {
	idx := assets.NewTextureIndex(cfg.Extensions, log)
	for _, dir := range cfg.Dirs {
		if err := idx.AddDir(dir); err != nil {
			log.Warn("texture directory unavailable", zap.String("dir", dir), zap.Error(err))
		}
	}
	log.Info("texture index ready", zap.Int("textures", idx.Len()))
	return idx
}

// convertAll converts files concurrently, at most cfg.Export.Workers at a time.
// The returned slice holds one error (or nil) per input file.
func convertAll(cfg *config.Config, files []string, textures mesh.Resolver, log *zap.Logger) []error {
	errs := make([]error, len(files))
	sem := make(chan struct{}, max(cfg.Export.Workers, 1))

	var wg sync.WaitGroup
	for i, path := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			errs[i] = convertFile(cfg, path, textures, log.With(zap.String("file", path)))
		}(i, path)
	}
	wg.Wait()

	return errs
}

func convertFile(cfg *config.Config, path string, textures mesh.Resolver, log *zap.Logger) error {
	start := time.Now()

	rmesh, err := formats.ParseRMeshFile(path, formats.RMeshOptions{
		RoomScale:        cfg.Import.RoomScale,
		IncludeCollision: cfg.Import.IncludeCollision,
	})
	if err != nil {
		return err
	}

	opts := []mesh.Option{mesh.WithLogger(log)}
	if !cfg.Export.Collision {
		opts = append(opts, mesh.WithoutCollision())
	}
	built := mesh.Build(rmesh, textures, opts...)

	name := outputStem(path)
	doc, err := export.GLTF(built, export.Options{Name: name, BaseDir: cfg.Export.OutputDir})
	if err != nil {
		return fmt.Errorf("building glTF: %w", err)
	}

	out := filepath.Join(cfg.Export.OutputDir, name+"."+cfg.Export.Format)
	if err := export.Write(doc, out); err != nil {
		return err
	}

	log.Info("converted",
		zap.String("output", out),
		zap.Int("vertices", len(built.Positions)),
		zap.Int("triangles", built.TriangleCount()),
		zap.Int("dropped", built.Dropped),
		zap.Int("materials", len(built.Materials)),
		zap.Duration("took", time.Since(start)))
	return nil
}
