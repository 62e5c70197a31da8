// Package catalog holds the static lookup tables that map logical model and
// timbre names to provider-specific identifiers.
//
// The tables are built once at startup, optionally from a YAML file, and are
// read-only afterwards, so a Catalog is safe for concurrent use.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultModelName is the logical model used when a request names none or
	// names one that is not in the table.
	DefaultModelName = "DeepSeek-V3"

	// DefaultVoiceName is the timbre shown to clients as the provider default
	DefaultVoiceName = "默认音色"
)

// DefaultModels maps logical model names to SiliconFlow model ids
var DefaultModels = map[string]string{
	"DeepSeek-V3": "deepseek-ai/DeepSeek-V3",
	"DeepSeek-R1": "deepseek-ai/DeepSeek-R1",
	"Qwen2.5-7B":  "Qwen/Qwen2.5-7B-Instruct",
	"Qwen2.5-72B": "Qwen/Qwen2.5-72B-Instruct",
	"QwQ-32B":     "Qwen/QwQ-32B",
}

// DefaultVoices maps timbre names to CosyVoice voice ids
var DefaultVoices = map[string]string{
	"默认音色": "FunAudioLLM/CosyVoice2-0.5B:anna",
	"妖娆女声": "speech:zh_7:cm03s5czm00m4d2xjtvw24a1z:ipzlwiaetyssioaftrpl",
	"马斯克":  "speech:elon_musk:cm03s5czm00m4d2xjtvw24a1z:lztzzdlgyxuvrmmlnpvv",
	"可爱女声": "speech:cute_girl_2:cm03s5czm00m4d2xjtvw24a1z:aueuxmukjlhnyjdamduq",
}

// Models resolves logical model names to provider model ids
type Models struct {
	ids         map[string]string
	defaultName string
	override    string
}

// NewModels builds a resolver. When override is non-empty every name resolves
// to it; this is how self-hosted backends (ollama, gemini) pin their model.
func NewModels(ids map[string]string, defaultName, override string) *Models {
	copied := make(map[string]string, len(ids))
	for k, v := range ids {
		copied[k] = v
	}
	if defaultName == "" {
		defaultName = DefaultModelName
	}
	return &Models{ids: copied, defaultName: defaultName, override: override}
}

// Resolve returns the provider model id for name
func (m *Models) Resolve(name string) string {
	if m.override != "" {
		return m.override
	}
	if id, ok := m.ids[name]; ok {
		return id
	}
	return m.ids[m.defaultName]
}

// DefaultName is the logical name used for requests that name no model
func (m *Models) DefaultName() string {
	return m.defaultName
}

// Names lists the logical model names in sorted order
func (m *Models) Names() []string {
	return sortedKeys(m.ids)
}

// Voices resolves timbre names to provider voice ids
type Voices struct {
	ids map[string]string
}

// NewVoices builds a timbre table
func NewVoices(ids map[string]string) *Voices {
	copied := make(map[string]string, len(ids))
	for k, v := range ids {
		copied[k] = v
	}
	return &Voices{ids: copied}
}

// Resolve returns the voice id for name. ok is false for empty or unknown names,
// in which case callers use their provider default.
func (v *Voices) Resolve(name string) (id string, ok bool) {
	if v == nil || name == "" {
		return "", false
	}
	id, ok = v.ids[name]
	return id, ok
}

// Names lists the timbre names in sorted order
func (v *Voices) Names() []string {
	if v == nil {
		return nil
	}
	return sortedKeys(v.ids)
}

// Catalog bundles the model and timbre tables
type Catalog struct {
	Models           *Models
	Voices           *Voices
	ElevenLabsVoices *Voices
}

// File is the YAML layout accepted by Load
type File struct {
	Models           map[string]string `yaml:"models"`
	DefaultModel     string            `yaml:"default_model"`
	Voices           map[string]string `yaml:"voices"`
	ElevenLabsVoices map[string]string `yaml:"elevenlabs_voices"`
}

// New builds the built-in catalog with the given model override
func New(modelOverride string) *Catalog {
	return &Catalog{
		Models:           NewModels(DefaultModels, DefaultModelName, modelOverride),
		Voices:           NewVoices(DefaultVoices),
		ElevenLabsVoices: NewVoices(nil),
	}
}

// Load builds a catalog from the YAML file at path. Sections missing from the
// file keep their built-in values. An empty path returns the built-in catalog.
func Load(path, modelOverride string) (*Catalog, error) {
	if path == "" {
		return New(modelOverride), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(raw, modelOverride)
}

// Parse builds a catalog from YAML bytes
func Parse(raw []byte, modelOverride string) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	models := f.Models
	if len(models) == 0 {
		models = DefaultModels
	}
	defaultModel := f.DefaultModel
	if defaultModel == "" {
		defaultModel = DefaultModelName
	}
	if _, ok := models[defaultModel]; !ok && modelOverride == "" {
		return nil, fmt.Errorf("default model %q is not in the model table", defaultModel)
	}

	voices := f.Voices
	if len(voices) == 0 {
		voices = DefaultVoices
	}

	return &Catalog{
		Models:           NewModels(models, defaultModel, modelOverride),
		Voices:           NewVoices(voices),
		ElevenLabsVoices: NewVoices(f.ElevenLabsVoices),
	}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
