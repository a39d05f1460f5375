package translator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kstack-dev/kstack/internal/model"
	"github.com/kstack-dev/kstack/internal/utils/logger"
)

// StackTranslator runs the front half of the compiler: parse, validate,
// resolve. The pipeline is synchronous and purely functional; one stack
// file in, one resolved app graph out, nothing persisted between runs.
type StackTranslator struct {
	parsers map[string]Parser
}

// NewStackTranslator creates a translator with the default parsers.
func NewStackTranslator() *StackTranslator {
	yamlParser := &YAMLParser{}
	return &StackTranslator{
		parsers: map[string]Parser{
			".yaml": yamlParser,
			".yml":  yamlParser,
			".json": yamlParser,
		},
	}
}

// Translate validates and resolves raw stack file bytes. The error list
// carries every schema and reference error found plus any warnings; the
// returned stack is only usable when the list has no errors.
func (t *StackTranslator) Translate(data []byte) (*ResolvedStack, *ErrorList, error) {
	root, err := (&YAMLParser{}).Parse(data)
	if err != nil {
		return nil, nil, err
	}
	return t.translateNode(root)
}

// TranslateFromReader reads a stack file from r and translates it.
func (t *StackTranslator) TranslateFromReader(r io.Reader) (*ResolvedStack, *ErrorList, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read input: %w", err)
	}
	return t.Translate(data)
}

// TranslateFromFile translates a stack file on disk, picking the parser by
// extension.
func (t *StackTranslator) TranslateFromFile(path string) (*ResolvedStack, *ErrorList, error) {
	logger.Debug("Translating stack file", zap.String("file", path))

	parser, ok := t.parsers[filepath.Ext(path)]
	if !ok {
		return nil, nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read stack file: %w", err)
	}

	root, err := parser.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	return t.translateNode(root)
}

func (t *StackTranslator) translateNode(root *yaml.Node) (*ResolvedStack, *ErrorList, error) {
	stack, errs := NewValidator().Validate(root)
	if errs.HasErrors() {
		return nil, errs, nil
	}

	resolved, resolveErrs := NewResolver(stack).Resolve()
	for _, err := range resolveErrs.Errors() {
		errs.Add(err)
	}
	if errs.HasErrors() {
		return nil, errs, nil
	}
	return resolved, errs, nil
}

// ExternalSecrets returns the names of secrets marked external, for the
// pre-apply cluster existence check.
func ExternalSecrets(stack *model.StackFile) []string {
	var names []string
	for name, spec := range stack.Secrets {
		if spec.External {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ExternalConfigs returns the names of configs marked external that some
// container actually references.
func ExternalConfigs(rs *ResolvedStack) []string {
	referenced := map[string]bool{}
	for _, app := range rs.Apps {
		for _, c := range app.Containers {
			for _, name := range c.EnvFromConfigs {
				referenced[name] = true
			}
		}
		for _, vol := range app.PodVolumes {
			if vol.Kind == PodVolumeConfigMap {
				referenced[vol.ConfigName] = true
			}
		}
	}

	var names []string
	for name, spec := range rs.Stack.Configs {
		if spec.External && referenced[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
