package doctrine

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/steward/internal/entity"
	"github.com/roach88/steward/internal/rules"
)

// LoadDir loads all CUE doctrine files from a directory and compiles them
// into a registry with one evaluator per declared entity kind.
func LoadDir(dir string) (*rules.Registry, error) {
	value, err := buildValue(dir)
	if err != nil {
		return nil, err
	}
	return compileRegistry(value)
}

// LoadString compiles doctrine from a CUE source string. Used in tests.
func LoadString(src string) (*rules.Registry, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compiling doctrine source: %w", err)
	}
	return compileRegistry(value)
}

// buildValue loads CUE instances from a directory into a single value.
func buildValue(dir string) (cue.Value, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return cue.Value{}, fmt.Errorf("doctrine directory not found: %s", dir)
	}
	if err != nil {
		return cue.Value{}, fmt.Errorf("accessing doctrine directory: %w", err)
	}
	if !info.IsDir() {
		return cue.Value{}, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := findCUEFiles(dir)
	if err != nil {
		return cue.Value{}, fmt.Errorf("scanning doctrine directory: %w", err)
	}
	if len(files) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("building CUE value: %w", err)
	}
	return value, nil
}

// compileRegistry extracts doctrine.<kind> structs and compiles each one.
func compileRegistry(value cue.Value) (*rules.Registry, error) {
	doctrineVal := value.LookupPath(cue.ParsePath("doctrine"))
	if !doctrineVal.Exists() {
		return nil, fmt.Errorf("no doctrine declarations found")
	}

	iter, err := doctrineVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterating doctrine kinds: %w", err)
	}

	registry := rules.NewRegistry()
	count := 0
	for iter.Next() {
		kind := iter.Label()
		fs, err := CompileRuleSet(kind, iter.Value())
		if err != nil {
			return nil, err
		}
		registry.Register(entity.Kind(kind), *fs)
		count++
	}
	if count == 0 {
		return nil, fmt.Errorf("doctrine declares no entity kinds")
	}

	return registry, nil
}

// findCUEFiles walks the directory and returns all .cue file paths.
func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
