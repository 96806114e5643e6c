package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Scripture-Search-Platform/pkg/logger"
)

// Asset names the base file of one document set and the prefix of its
// translated files (translations/<lang>/<prefix>_<lang>.json).
type Asset struct {
	Base   string
	Prefix string
}

var (
	QuranAsset        = Asset{Base: "qurantft.json", Prefix: "quran"}
	IntroductionAsset = Asset{Base: "introduction.json", Prefix: "introduction"}
	AppendicesAsset   = Asset{Base: "appendices.json", Prefix: "appendices"}
	ApplicationAsset  = Asset{Base: "application.json", Prefix: "application"}
	ThemeMapAsset     = Asset{Base: "map.json", Prefix: "map"}
)

// TranslationsDir is the subdirectory of the assets root holding one folder
// per translated language.
const TranslationsDir = "translations"

// Registry resolves language codes to corpora read from an assets directory.
// The base language uses the base files; every other language uses its
// translated files and falls back to the base file for any that are missing.
type Registry struct {
	dir       string
	base      string
	languages Languages

	mu        sync.RWMutex
	available map[string]struct{}
	logger    *slog.Logger
}

// NewRegistry scans dir for translations. languages supplies direction and
// digit settings; codes absent from it borrow the base language's settings.
func NewRegistry(dir, base string, languages Languages) (*Registry, error) {
	if languages == nil {
		languages = Languages{}
	}
	r := &Registry{
		dir:       dir,
		base:      base,
		languages: languages,
		logger:    logger.WithComponent("corpus-registry"),
	}
	if err := r.Rescan(); err != nil {
		return nil, err
	}
	return r, nil
}

// OpenRegistry builds the registry described by cfg. A relative languages
// file is resolved against the assets directory; when it is missing every
// translation folder is served with the base language's settings.
func OpenRegistry(cfg config.CorpusConfig) (*Registry, error) {
	path := cfg.LanguagesFile
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(cfg.AssetsDir, path)
	}
	var langs Languages
	if path != "" {
		var err error
		langs, err = LoadLanguages(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return NewRegistry(cfg.AssetsDir, cfg.BaseLanguage, langs)
}

// Rescan refreshes the set of available languages from disk. A translation
// is available once its quran file exists and languages.json lists it.
func (r *Registry) Rescan() error {
	if _, err := os.Stat(filepath.Join(r.dir, QuranAsset.Base)); err != nil {
		return fmt.Errorf("%w: base corpus missing in %s: %v", apperrors.ErrCorpusUnavailable, r.dir, err)
	}
	available := map[string]struct{}{r.base: {}}
	entries, err := os.ReadDir(filepath.Join(r.dir, TranslationsDir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading translations: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		code := e.Name()
		if _, known := r.languages[code]; len(r.languages) > 0 && !known {
			r.logger.Debug("translation folder without language settings", "lang", code)
			continue
		}
		if _, err := os.Stat(r.translatedPath(QuranAsset, code)); err != nil {
			continue
		}
		available[code] = struct{}{}
	}

	r.mu.Lock()
	r.available = available
	r.mu.Unlock()
	r.logger.Debug("languages scanned", "count", len(available))
	return nil
}

// Dir returns the assets root.
func (r *Registry) Dir() string { return r.dir }

// Base returns the base language code.
func (r *Registry) Base() string { return r.base }

// Codes lists the available languages, sorted.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.available))
	for c := range r.available {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Has reports whether code is available.
func (r *Registry) Has(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.available[code]
	return ok
}

// Language returns the settings for code.
func (r *Registry) Language(code string) Language {
	return r.languages.Get(code, r.base)
}

// Load reads and flattens the corpus of code.
func (r *Registry) Load(ctx context.Context, code string) (*Corpus, error) {
	if !r.Has(code) {
		return nil, apperrors.Newf(apperrors.ErrLanguageNotFound, http.StatusNotFound, "no corpus for language %q", code)
	}
	bundle, err := r.LoadBundle(ctx, code)
	if err != nil {
		return nil, err
	}
	return New(r.Language(code), bundle), nil
}

// LoadBundle reads the decoded assets of code without flattening them.
func (r *Registry) LoadBundle(ctx context.Context, code string) (*Bundle, error) {
	log := logger.ForLanguage("corpus-registry", code)

	read := func(a Asset, required bool) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, path, err := r.readAsset(a, code)
		if err != nil {
			if !required && errors.Is(err, fs.ErrNotExist) {
				log.Debug("optional asset missing", "asset", a.Prefix)
				return nil, nil
			}
			return nil, fmt.Errorf("%w: %v", apperrors.ErrCorpusUnavailable, err)
		}
		log.Debug("asset read", "asset", a.Prefix, "path", path, "bytes", len(data))
		return data, nil
	}

	quran, err := read(QuranAsset, true)
	if err != nil {
		return nil, err
	}
	intro, err := read(IntroductionAsset, false)
	if err != nil {
		return nil, err
	}
	appx, err := read(AppendicesAsset, false)
	if err != nil {
		return nil, err
	}
	app, err := read(ApplicationAsset, false)
	if err != nil {
		return nil, err
	}
	themes, err := read(ThemeMapAsset, false)
	if err != nil {
		return nil, err
	}

	b := &Bundle{
		Quran:       decodeQuran(quran),
		Application: decodeApplication(app),
	}
	if intro != nil {
		b.Introduction = decodeSections(intro)
	}
	if appx != nil {
		b.Appendices = decodeSections(appx)
	}
	if themes != nil {
		tm, err := decodeThemes(themes)
		if err != nil {
			log.Warn("theme map unreadable, letter lookups disabled", "error", err)
		}
		b.Themes = tm
	}
	if len(b.Quran) == 0 {
		return nil, fmt.Errorf("%w: quran asset for %s has no pages", apperrors.ErrCorpusUnavailable, code)
	}
	return b, nil
}

// readAsset prefers the translated file and falls back to the base file.
func (r *Registry) readAsset(a Asset, code string) ([]byte, string, error) {
	if code != r.base {
		path := r.translatedPath(a, code)
		data, err := os.ReadFile(path)
		if err == nil {
			return data, path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, path, err
		}
	}
	path := filepath.Join(r.dir, a.Base)
	data, err := os.ReadFile(path)
	return data, path, err
}

func (r *Registry) translatedPath(a Asset, code string) string {
	return filepath.Join(r.dir, TranslationsDir, code, a.Prefix+"_"+code+".json")
}
