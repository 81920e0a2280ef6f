// rmeshtool is a CLI utility for inspecting and converting RMesh room files.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/rmesh/internal/config"
	"github.com/Faultbox/rmesh/pkg/formats"
	"github.com/Faultbox/rmesh/pkg/mesh"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "dump":
		cmdDump(args)
	case "convert", "c":
		cmdConvert(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`rmeshtool - RMesh room file utility

Usage:
  rmeshtool <command> [options]

Commands:
  info <file.rmesh>                  Show mesh statistics and materials
  dump [-all] [-mesh] <file.rmesh>   Dump decoded structures
  convert [options] <file|dir>...    Convert rooms to glTF/GLB
  config [-save]                     Print (or save) the effective config

Convert options:
  -config <path>     Config file (default ./rmesh.yaml, then user config dir)
  -textures <dir>    Texture directory
  -format glb|gltf   Output format
  -out <dir>         Output directory
  -scale <f>         Room scale factor
  -no-collision      Skip the collision block
  -j <n>             Files converted in parallel
  -debug             Debug logging

Examples:
  rmeshtool info GFX/map/room1.rmesh
  rmeshtool convert -textures GFX/map -out build GFX/map
  rmeshtool dump -mesh room1.rmesh`)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	noCollision := fs.Bool("no-collision", false, "Skip the collision block")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rmeshtool info [-no-collision] <file.rmesh>")
		os.Exit(1)
	}

	opts := formats.DefaultRMeshOptions()
	opts.IncludeCollision = !*noCollision

	rmesh, err := formats.ParseRMeshFile(fs.Arg(0), opts)
	if err != nil {
		fail(err)
	}

	minB, maxB := rmesh.GetBounds()

	fmt.Printf("File:       %s\n", fs.Arg(0))
	fmt.Printf("Header:     %s\n", rmesh.Header)
	fmt.Printf("Vertices:   %d\n", rmesh.GetTotalVertexCount())
	fmt.Printf("Triangles:  %d\n", rmesh.GetTotalTriangleCount())
	fmt.Printf("Surfaces:   %d drawn, %d collision\n", len(rmesh.Surfaces), len(rmesh.CollisionSurfaces))
	fmt.Printf("Bounds:     (%.2f, %.2f, %.2f) - (%.2f, %.2f, %.2f)\n",
		minB[0], minB[1], minB[2], maxB[0], maxB[1], maxB[2])

	built := mesh.Build(rmesh, nil)
	if built.Dropped > 0 {
		fmt.Printf("Invalid:    %d triangles would be dropped\n", built.Dropped)
	}

	fmt.Println()
	fmt.Println("Materials:")
	for i, mat := range rmesh.Materials {
		tris := len(built.Groups[i].Triangles)
		if len(mat.Textures) == 0 {
			fmt.Printf("  %-16s %6d tris\n", mat.Name, tris)
			continue
		}
		fmt.Printf("  %-16s %6d tris  %s\n", mat.Name, tris, strings.Join(mat.Textures, ", "))
	}
}

func cmdDump(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	all := fs.Bool("all", false, "Include vertices and triangles")
	normalized := fs.Bool("mesh", false, "Dump the normalized mesh instead of the decoded file")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rmeshtool dump [-all] [-mesh] <file.rmesh>")
		os.Exit(1)
	}

	rmesh, err := formats.ParseRMeshFile(fs.Arg(0), formats.DefaultRMeshOptions())
	if err != nil {
		fail(err)
	}

	dumper := spew.NewDefaultConfig()
	dumper.DisableCapacities = true
	dumper.DisablePointerAddresses = true
	dumper.SortKeys = true

	switch {
	case *normalized && *all:
		dumper.Dump(mesh.Build(rmesh, nil))
	case *normalized:
		built := mesh.Build(rmesh, nil)
		dumper.Dump(built.Materials)
		for i, g := range built.Groups {
			fmt.Printf("group %d: material %d, %d triangles\n", i, g.Material, len(g.Triangles))
		}
	case *all:
		dumper.Dump(rmesh)
	default:
		dumper.Dump(rmesh.Header, rmesh.Materials, rmesh.Surfaces, rmesh.CollisionSurfaces)
	}
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	save := fs.Bool("save", false, "Write the effective config to the user config dir")
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		fail(err)
	}

	if *save {
		if err := cfg.Save(); err != nil {
			fail(err)
		}
		fmt.Printf("Saved %s/config.yaml\n", config.ConfigDir())
		return
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		fail(err)
	}
	os.Stdout.Write(out)
}
