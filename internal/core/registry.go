package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/valter-silva-au/dmb/pkg/models"
)

// Built-in command words. Helpers may not claim them.
const (
	CommandVersion = "version"
	CommandHelp    = "help"
)

// ErrDuplicateAlias is returned when two bindings claim the same alias.
var ErrDuplicateAlias = errors.New("duplicate command alias")

// HelperRegistry resolves command words to helper bindings. It is
// immutable once built.
type HelperRegistry struct {
	bindings []models.HelperBinding
	byAlias  map[string]int
}

// NewHelperRegistry validates bindings and indexes their aliases.
func NewHelperRegistry(bindings []models.HelperBinding) (*HelperRegistry, error) {
	r := &HelperRegistry{
		bindings: make([]models.HelperBinding, 0, len(bindings)),
		byAlias:  make(map[string]int),
	}
	for i, b := range bindings {
		if strings.TrimSpace(b.Path) == "" {
			return nil, fmt.Errorf("registering helper #%d: path is empty", i+1)
		}
		if len(b.Aliases) == 0 {
			return nil, fmt.Errorf("registering helper %s: no aliases", b.Path)
		}
		for _, alias := range b.Aliases {
			if alias == "" || strings.IndexFunc(alias, unicode.IsSpace) >= 0 {
				return nil, fmt.Errorf("registering helper %s: invalid alias %q", b.Path, alias)
			}
			if alias == CommandVersion || alias == CommandHelp {
				return nil, fmt.Errorf("registering helper %s: alias %q is a built-in command", b.Path, alias)
			}
			if prev, exists := r.byAlias[alias]; exists {
				return nil, fmt.Errorf("registering helper %s: alias %q already bound to %s: %w",
					b.Path, alias, r.bindings[prev].Path, ErrDuplicateAlias)
			}
			r.byAlias[alias] = len(r.bindings)
		}
		b.Aliases = append([]string(nil), b.Aliases...)
		r.bindings = append(r.bindings, b)
	}
	return r, nil
}

// Lookup returns the binding registered under word. Matching is exact and
// case-sensitive.
func (r *HelperRegistry) Lookup(word string) (models.HelperBinding, bool) {
	i, ok := r.byAlias[word]
	if !ok {
		return models.HelperBinding{}, false
	}
	return r.bindings[i], true
}

// Names returns every registered alias, sorted.
func (r *HelperRegistry) Names() []string {
	names := make([]string, 0, len(r.byAlias))
	for alias := range r.byAlias {
		names = append(names, alias)
	}
	sort.Strings(names)
	return names
}

// Describe returns one formatted line per binding.
func (r *HelperRegistry) Describe() []string {
	lines := make([]string, 0, len(r.bindings))
	for _, b := range r.bindings {
		line := b.String()
		if b.TimersAllowed() {
			line += " [timers]"
		}
		lines = append(lines, line)
	}
	return lines
}

// DefaultHelpers is the helper table of the deployed bot, with paths
// relative to the bot's working directory.
func DefaultHelpers() []models.HelperBinding {
	off := false
	on := true
	helper := func(path string, timers bool, aliases ...string) models.HelperBinding {
		b := models.HelperBinding{Aliases: aliases, Path: path, Timers: &off}
		if timers {
			b.Timers = &on
		}
		return b
	}
	return []models.HelperBinding{
		helper("../ai/ai", false, "ai"),
		helper("../cdecl/c.sh", false, "cdecl"),
		helper("../cdecl/c++.sh", false, "c++decl"),
		helper("../rtk/rtk.sh", false, "rtk"),
		helper("../romaji/romaji.sh", false, "romaji"),
		helper("../kanjidic/kanjidic.sh", false, "kanjidic"),
		helper("../reading/read.py", false, "kana"),
		helper("../kana/hira.sh", false, "hira"),
		helper("../kana/kata.sh", false, "kata"),
		helper("../jmdict/jm.sh", false, "ja"),
		helper("../jmdict/wa.sh", false, "wa"),
		helper("../audio/find_audio.sh", false, "audio"),
		helper("../reading_quiz/quiz.sh", true, "quiz"),
		helper("../kumitate_quiz/kuiz.sh", true, "kuiz"),
		helper("../mueval/run.sh", false, "calc"),
		helper("../tokenizer/tokenizer", false, "tok"),
		helper("../mueval/type.sh", false, "type"),
		helper("../compare_encoding/compare_encoding.sh", false, "utf"),
		helper("../lhc/lhc_info.sh", false, "lhc"),
	}
}
