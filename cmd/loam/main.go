// Loam CLI - manages the snapshot archive of a loam project
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/loam-lang/loam/config"
	"github.com/loam-lang/loam/core"

	_ "github.com/tliron/commonlog/simple"

	"github.com/tliron/commonlog"
)

func main() {
	verbosity := flag.Int("v", 0, "Log verbosity (0 quiet, higher is noisier)")
	storePath := flag.String("store", "", "Snapshot store path (overrides loam.toml)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: loam [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  list                 List archived snapshot hashes\n")
		fmt.Fprintf(os.Stderr, "  verify <hash>        Fetch a snapshot and restore it to check integrity\n")
		fmt.Fprintf(os.Stderr, "  export <hash> <file> Write a snapshot image to a file\n")
		fmt.Fprintf(os.Stderr, "  import <file>        Validate an image file and archive it\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *verbosity == 0 {
		*verbosity = cfg.Log.Verbosity
	}
	commonlog.Configure(*verbosity, nil)

	path := *storePath
	if path == "" {
		path = cfg.StorePath()
	}
	if path == "" {
		fmt.Fprintf(os.Stderr, "Error: no snapshot store configured (set store.path in loam.toml or use -store)\n")
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	store, err := core.OpenSnapshotStore(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	rt := core.NewRuntime(core.Options{
		MaxFrameDepth: cfg.Runtime.MaxFrameDepth,
		RootCapacity:  cfg.Runtime.RootCapacity,
	})

	if err := run(rt, store, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig walks up from the working directory for a loam.toml,
// falling back to defaults when none exists.
func loadConfig() (*config.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

func run(rt *core.Runtime, store *core.SnapshotStore, args []string) error {
	switch cmd, rest := args[0], args[1:]; cmd {
	case "list":
		return cmdList(store)
	case "verify":
		if len(rest) != 1 {
			return fmt.Errorf("verify takes exactly one hash")
		}
		return cmdVerify(rt, store, rest[0])
	case "export":
		if len(rest) != 2 {
			return fmt.Errorf("export takes a hash and a file")
		}
		return cmdExport(store, rest[0], rest[1])
	case "import":
		if len(rest) != 1 {
			return fmt.Errorf("import takes exactly one file")
		}
		return cmdImport(rt, store, rest[0])
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdList(store *core.SnapshotStore) error {
	hashes, err := store.Hashes()
	if err != nil {
		return err
	}
	for _, h := range hashes {
		fmt.Println(h)
	}
	return nil
}

// cmdVerify fetches an image (Get already checks the content hash) and
// restores it into a scratch runtime to prove it still decodes.
func cmdVerify(rt *core.Runtime, store *core.SnapshotStore, hash string) error {
	root, err := rt.Unarchive(store, hash)
	if err != nil {
		return err
	}
	fmt.Printf("ok %s %s\n", hash, rt.Mold(&root))
	return nil
}

func cmdExport(store *core.SnapshotStore, hash, file string) error {
	image, err := store.Get(hash)
	if err != nil {
		return err
	}
	if err := os.WriteFile(file, image, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %d bytes to %s\n", len(image), file)
	return nil
}

// cmdImport restores the image first so a corrupt file never lands in
// the archive, then stores the original bytes unchanged.
func cmdImport(rt *core.Runtime, store *core.SnapshotStore, file string) error {
	image, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if _, err := rt.Restore(image); err != nil {
		return fmt.Errorf("image does not restore: %w", err)
	}
	hash, err := store.Put(image)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
