package convert

import (
	"errors"
	"fmt"

	"github.com/colelawrence/derive-codegen/internal/builtin"
	"github.com/colelawrence/derive-codegen/internal/diag"
	"github.com/colelawrence/derive-codegen/internal/schema"
	"github.com/colelawrence/derive-codegen/internal/source"
)

const defaultMaxDiagnostics = 512

// Options tunes a conversion run.
type Options struct {
	Jobs           int    // 0 = GOMAXPROCS
	Strict         bool   // any error diagnostic aborts
	SourceRoot     string // where declaration files are looked up
	MaxDiagnostics int
}

// Result is everything a run produced. Input is complete even when Bag holds
// errors; the offending declarations are simply absent.
type Result struct {
	Input    schema.Input
	Bag      *diag.Bag
	Registry *builtin.Registry
	Files    *source.FileSet
	Dropped  []string
}

// ErrStrict is returned in strict mode when any declaration failed.
var ErrStrict = errors.New("conversion reported errors")

func strictError(bag *diag.Bag) error {
	return fmt.Errorf("%w: %d error(s)", ErrStrict, bag.Count(diag.SevError))
}
