package translator

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kstack-dev/kstack/internal/model"
	"github.com/kstack-dev/kstack/internal/utils/logger"
)

// Validator checks a parsed stack file against the structural grammar and
// decodes it into the typed model. The grammar is strict: every object shape
// is closed, unknown keys are errors, and ambiguous fields (volume mounts,
// envFrom/volumeFrom entries) are resolved into tagged variants here so later
// stages never re-inspect raw shapes.
//
// All shape errors are accumulated and returned together; only an unreadable
// document short-circuits.
type Validator struct {
	errs *ErrorList
}

// NewValidator creates a stack file validator.
func NewValidator() *Validator {
	return &Validator{errs: &ErrorList{}}
}

var topLevelKeys = map[string]bool{
	"apps": true, "configs": true, "secrets": true, "volumes": true,
}

var containerKeys = map[string]bool{
	"name": true, "image": true, "command": true, "port": true, "ports": true,
	"env": true, "volumes": true, "networks": true, "depends_on": true,
	"expose": true, "envFrom": true, "volumeFrom": true, "sidecars": true,
}

// Validate walks the document and returns the decoded stack file together
// with every schema error found. The stack file is only usable when the
// error list carries no errors.
func (v *Validator) Validate(root *yaml.Node) (*model.StackFile, *ErrorList) {
	logger.Debug("Validating stack file structure")

	stack := &model.StackFile{
		Apps:    map[string]*model.Container{},
		Configs: map[string]*model.ConfigSpec{},
		Secrets: map[string]*model.SecretSpec{},
		Volumes: map[string]*model.VolumeSpec{},
	}

	if !v.expectMapping(root, "") {
		return stack, v.errs
	}

	seen := map[string]bool{}
	forEach(root, func(key string, val *yaml.Node) {
		seen[key] = true
		switch key {
		case "apps":
			v.validateApps(val, stack)
		case "configs":
			v.validateConfigs(val, stack)
		case "secrets":
			v.validateSecrets(val, stack)
		case "volumes":
			v.validateTopVolumes(val, stack)
		default:
			v.errs.Schema(docpath(key), "unknown property %q, expected one of apps, configs, secrets, volumes", key)
		}
	})

	if !seen["apps"] {
		v.errs.Schema("/", "missing required property %q", "apps")
	}

	return stack, v.errs
}

func (v *Validator) validateApps(node *yaml.Node, stack *model.StackFile) {
	if !v.expectMapping(node, docpath("apps")) {
		return
	}
	if len(node.Content) == 0 {
		v.errs.Schema(docpath("apps"), "at least one app is required")
		return
	}
	forEach(node, func(name string, val *yaml.Node) {
		app := v.validateContainer(docpath("apps", name), name, val, true)
		stack.Apps[name] = app
		stack.AppOrder = append(stack.AppOrder, name)
	})
}

// validateContainer checks an app or sidecar shape. Sidecars structurally
// forbid a nested sidecars key.
func (v *Validator) validateContainer(p, name string, node *yaml.Node, allowSidecars bool) *model.Container {
	c := &model.Container{Name: name, Sidecars: map[string]*model.Container{}}
	if !v.expectMapping(node, p) {
		return c
	}

	hasImage := false
	forEach(node, func(key string, val *yaml.Node) {
		kp := p + "/" + key
		if !containerKeys[key] {
			v.errs.Schema(kp, "unknown property %q", key)
			return
		}
		switch key {
		case "name":
			if s, ok := v.stringValue(val, kp); ok && s != "" {
				c.Name = s
			}
		case "image":
			hasImage = true
			if s, ok := v.stringValue(val, kp); ok {
				if s == "" {
					v.errs.Schema(kp, "image must be a non-empty string")
				}
				c.Image = s
			}
		case "command":
			c.Command = v.stringSequence(val, kp)
		case "port":
			c.Port = v.intValue(val, kp)
		case "ports":
			c.Ports = v.validatePorts(val, kp)
		case "env":
			c.Env = v.validateEnv(val, kp)
		case "volumes":
			c.Volumes = v.validateMounts(val, kp)
		case "networks":
			c.Networks = v.stringSequence(val, kp)
		case "depends_on":
			c.DependsOn = v.stringSequence(val, kp)
		case "expose":
			c.Expose = v.validateExpose(val, kp)
		case "envFrom":
			c.EnvFrom = v.validateEnvFrom(val, kp)
		case "volumeFrom":
			c.VolumeFrom = v.validateVolumeFrom(val, kp)
		case "sidecars":
			if !allowSidecars {
				v.errs.Schema(kp, "sidecars may not declare nested sidecars")
				return
			}
			v.validateSidecars(val, kp, c)
		}
	})

	if !hasImage {
		v.errs.Schema(p, "missing required property %q", "image")
	}
	return c
}

func (v *Validator) validateSidecars(node *yaml.Node, p string, parent *model.Container) {
	if !v.expectMapping(node, p) {
		return
	}
	forEach(node, func(name string, val *yaml.Node) {
		sc := v.validateContainer(p+"/"+name, name, val, false)
		parent.Sidecars[name] = sc
		parent.SidecarOrder = append(parent.SidecarOrder, name)
	})
}

// validatePorts checks the "host:container[/proto]" string form.
func (v *Validator) validatePorts(node *yaml.Node, p string) []string {
	if !v.expectSequence(node, p) {
		return nil
	}
	var ports []string
	for i, item := range node.Content {
		ip := p + "/" + strconv.Itoa(i)
		s, ok := v.stringValue(item, ip)
		if !ok {
			continue
		}
		if _, _, _, err := ParsePortMapping(s); err != nil {
			v.errs.Schema(ip, "invalid port mapping %q: %v", s, err)
			continue
		}
		ports = append(ports, s)
	}
	return ports
}

// validateEnv checks the "KEY=VALUE" string form.
func (v *Validator) validateEnv(node *yaml.Node, p string) []string {
	if !v.expectSequence(node, p) {
		return nil
	}
	var env []string
	for i, item := range node.Content {
		ip := p + "/" + strconv.Itoa(i)
		s, ok := v.stringValue(item, ip)
		if !ok {
			continue
		}
		if !strings.Contains(s, "=") {
			v.errs.Schema(ip, "environment entry %q must be in KEY=VALUE form", s)
			continue
		}
		env = append(env, s)
	}
	return env
}

// validateMounts checks the three volume mount forms: bare string, file
// object, directory object. Each object form is closed and requires the
// discriminant plus path and mount.
func (v *Validator) validateMounts(node *yaml.Node, p string) []model.VolumeMount {
	if !v.expectSequence(node, p) {
		return nil
	}
	var mounts []model.VolumeMount
	for i, item := range node.Content {
		ip := p + "/" + strconv.Itoa(i)
		switch {
		case item.Kind == yaml.ScalarNode:
			s, ok := v.stringValue(item, ip)
			if !ok {
				continue
			}
			m, err := parseBareMount(s)
			if err != nil {
				v.errs.Schema(ip, "invalid volume mount %q: %v", s, err)
				continue
			}
			mounts = append(mounts, m)
		case item.Kind == yaml.MappingNode:
			if m, ok := v.validateMountObject(item, ip); ok {
				mounts = append(mounts, m)
			}
		default:
			v.errs.Schema(ip, "volume mount must be a string or an object")
		}
	}
	return mounts
}

func (v *Validator) validateMountObject(node *yaml.Node, p string) (model.VolumeMount, bool) {
	m := model.VolumeMount{}
	hasFile, hasDir, hasPath, hasMount := false, false, false, false

	forEach(node, func(key string, val *yaml.Node) {
		kp := p + "/" + key
		switch key {
		case "file":
			hasFile = true
		case "directory":
			hasDir = true
		case "path":
			hasPath = true
			m.Source, _ = v.stringValue(val, kp)
		case "mount":
			hasMount = true
			m.Mount, _ = v.stringValue(val, kp)
		case "read_only":
			m.ReadOnly = v.boolValue(val, kp)
		default:
			v.errs.Schema(kp, "unknown property %q", key)
		}
	})

	switch {
	case hasFile && hasDir:
		v.errs.Schema(p, "file and directory are mutually exclusive")
		return m, false
	case !hasFile && !hasDir:
		v.errs.Schema(p, "volume mount object requires either file or directory")
		return m, false
	}
	if !hasPath || !hasMount {
		v.errs.Schema(p, "volume mount object requires path and mount")
		return m, false
	}
	if hasFile {
		m.Kind = model.MountFile
	} else {
		m.Kind = model.MountDirectory
	}
	m.Path = m.Mount
	return m, true
}

// validateExpose accepts the {host, port, path} object form and the legacy
// single-key {domain: {port, protocol, path}} form.
func (v *Validator) validateExpose(node *yaml.Node, p string) []model.ExposeRule {
	if !v.expectSequence(node, p) {
		return nil
	}
	var rules []model.ExposeRule
	for i, item := range node.Content {
		ip := p + "/" + strconv.Itoa(i)
		if item.Kind != yaml.MappingNode || len(item.Content) == 0 {
			v.errs.Schema(ip, "expose entry must be a non-empty object")
			continue
		}
		if hasKey(item, "host") {
			if r, ok := v.validateExposeObject(item, ip); ok {
				rules = append(rules, r)
			}
			continue
		}
		// Legacy form: a single domain key mapping to settings.
		if len(item.Content) != 2 {
			v.errs.Schema(ip, "expose entry must declare exactly one host")
			continue
		}
		host := item.Content[0].Value
		settings := item.Content[1]
		if settings.Kind != yaml.MappingNode {
			v.errs.Schema(ip+"/"+host, "expose settings must be an object")
			continue
		}
		r := model.ExposeRule{Host: strings.TrimSuffix(host, ":")}
		v.fillExposeSettings(settings, ip+"/"+host, &r)
		rules = append(rules, r)
	}
	return rules
}

func (v *Validator) validateExposeObject(node *yaml.Node, p string) (model.ExposeRule, bool) {
	r := model.ExposeRule{}
	ok := true
	forEach(node, func(key string, val *yaml.Node) {
		kp := p + "/" + key
		switch key {
		case "host":
			r.Host, _ = v.stringValue(val, kp)
		case "port":
			r.Port = v.intValue(val, kp)
		case "path":
			r.Path, _ = v.stringValue(val, kp)
		case "protocol":
			r.Protocol, _ = v.stringValue(val, kp)
		case "ingressClassName":
			r.IngressClassName, _ = v.stringValue(val, kp)
		default:
			v.errs.Schema(kp, "unknown property %q", key)
			ok = false
		}
	})
	if r.Host == "" {
		v.errs.Schema(p, "expose entry requires a host")
		ok = false
	}
	return r, ok
}

func (v *Validator) fillExposeSettings(node *yaml.Node, p string, r *model.ExposeRule) {
	forEach(node, func(key string, val *yaml.Node) {
		kp := p + "/" + key
		switch key {
		case "port":
			r.Port = v.intValue(val, kp)
		case "path":
			r.Path, _ = v.stringValue(val, kp)
		case "protocol":
			r.Protocol, _ = v.stringValue(val, kp)
		case "ingressClassName":
			r.IngressClassName, _ = v.stringValue(val, kp)
		default:
			v.errs.Schema(kp, "unknown property %q", key)
		}
	})
}

// validateEnvFrom checks that each secrets entry is either a bare secret name
// or a single-key object whose value carries exactly key and set.
func (v *Validator) validateEnvFrom(node *yaml.Node, p string) *model.EnvFrom {
	if !v.expectMapping(node, p) {
		return nil
	}
	ef := &model.EnvFrom{}
	forEach(node, func(key string, val *yaml.Node) {
		kp := p + "/" + key
		switch key {
		case "secrets":
			ef.Secrets = v.validateEnvFromSecrets(val, kp)
		case "configs":
			ef.Configs = v.stringSequence(val, kp)
		default:
			v.errs.Schema(kp, "unknown property %q", key)
		}
	})
	return ef
}

func (v *Validator) validateEnvFromSecrets(node *yaml.Node, p string) []model.EnvFromSecretRef {
	if !v.expectSequence(node, p) {
		return nil
	}
	var refs []model.EnvFromSecretRef
	for i, item := range node.Content {
		ip := p + "/" + strconv.Itoa(i)
		switch item.Kind {
		case yaml.ScalarNode:
			if s, ok := v.stringValue(item, ip); ok {
				refs = append(refs, model.EnvFromSecretRef{Name: s})
			}
		case yaml.MappingNode:
			// One secret reference per list entry.
			if len(item.Content) != 2 {
				v.errs.Schema(ip, "secret reference must carry exactly one secret name")
				continue
			}
			name := item.Content[0].Value
			body := item.Content[1]
			ref := model.EnvFromSecretRef{Name: name}
			if body.Kind != yaml.MappingNode {
				v.errs.Schema(ip+"/"+name, "secret reference body must be an object with key and set")
				continue
			}
			hasRefKey, hasSet := false, false
			forEach(body, func(key string, val *yaml.Node) {
				kp := ip + "/" + name + "/" + key
				switch key {
				case "key":
					hasRefKey = true
					ref.Key, _ = v.stringValue(val, kp)
				case "set":
					hasSet = true
					ref.Set, _ = v.stringValue(val, kp)
				default:
					v.errs.Schema(kp, "unknown property %q", key)
				}
			})
			if !hasRefKey || !hasSet {
				v.errs.Schema(ip+"/"+name, "secret reference requires key and set")
				continue
			}
			refs = append(refs, ref)
		default:
			v.errs.Schema(ip, "secret reference must be a string or an object")
		}
	}
	return refs
}

// validateVolumeFrom checks secrets entries (bare name or single-key object
// with required items) and config mounts.
func (v *Validator) validateVolumeFrom(node *yaml.Node, p string) *model.VolumeFrom {
	if !v.expectMapping(node, p) {
		return nil
	}
	vf := &model.VolumeFrom{}
	forEach(node, func(key string, val *yaml.Node) {
		kp := p + "/" + key
		switch key {
		case "secrets":
			vf.Secrets = v.validateVolumeFromSecrets(val, kp)
		case "configs":
			vf.Configs = v.validateConfigMounts(val, kp)
		default:
			v.errs.Schema(kp, "unknown property %q", key)
		}
	})
	return vf
}

func (v *Validator) validateVolumeFromSecrets(node *yaml.Node, p string) []model.VolumeFromSecretRef {
	if !v.expectSequence(node, p) {
		return nil
	}
	var refs []model.VolumeFromSecretRef
	for i, item := range node.Content {
		ip := p + "/" + strconv.Itoa(i)
		switch item.Kind {
		case yaml.ScalarNode:
			if s, ok := v.stringValue(item, ip); ok {
				refs = append(refs, model.VolumeFromSecretRef{Name: s})
			}
		case yaml.MappingNode:
			if len(item.Content) != 2 {
				v.errs.Schema(ip, "secret reference must carry exactly one secret name")
				continue
			}
			name := item.Content[0].Value
			body := item.Content[1]
			if body.Kind != yaml.MappingNode {
				v.errs.Schema(ip+"/"+name, "secret reference body must be an object with items")
				continue
			}
			ref := model.VolumeFromSecretRef{Name: name}
			hasItems := false
			forEach(body, func(key string, val *yaml.Node) {
				kp := ip + "/" + name + "/" + key
				switch key {
				case "items":
					hasItems = true
					ref.Items = v.validateKeyMounts(val, kp)
				default:
					v.errs.Schema(kp, "unknown property %q", key)
				}
			})
			if !hasItems {
				v.errs.Schema(ip+"/"+name, "secret reference requires items")
				continue
			}
			refs = append(refs, ref)
		default:
			v.errs.Schema(ip, "secret reference must be a string or an object")
		}
	}
	return refs
}

func (v *Validator) validateKeyMounts(node *yaml.Node, p string) []model.KeyMount {
	if !v.expectSequence(node, p) {
		return nil
	}
	var items []model.KeyMount
	for i, item := range node.Content {
		ip := p + "/" + strconv.Itoa(i)
		if item.Kind != yaml.MappingNode {
			v.errs.Schema(ip, "items entry must be an object with key and mount")
			continue
		}
		km := model.KeyMount{}
		hasRefKey, hasMount := false, false
		forEach(item, func(key string, val *yaml.Node) {
			kp := ip + "/" + key
			switch key {
			case "key":
				hasRefKey = true
				km.Key, _ = v.stringValue(val, kp)
			case "mount":
				hasMount = true
				km.Mount, _ = v.stringValue(val, kp)
			default:
				v.errs.Schema(kp, "unknown property %q", key)
			}
		})
		if !hasRefKey || !hasMount {
			v.errs.Schema(ip, "items entry requires key and mount")
			continue
		}
		items = append(items, km)
	}
	return items
}

func (v *Validator) validateConfigMounts(node *yaml.Node, p string) []model.ConfigMount {
	if !v.expectSequence(node, p) {
		return nil
	}
	var mounts []model.ConfigMount
	for i, item := range node.Content {
		ip := p + "/" + strconv.Itoa(i)
		switch item.Kind {
		case yaml.ScalarNode:
			if s, ok := v.stringValue(item, ip); ok {
				mounts = append(mounts, model.ConfigMount{Name: s})
			}
		case yaml.MappingNode:
			cm := model.ConfigMount{}
			forEach(item, func(key string, val *yaml.Node) {
				kp := ip + "/" + key
				switch key {
				case "name":
					cm.Name, _ = v.stringValue(val, kp)
				case "mount":
					cm.Mount, _ = v.stringValue(val, kp)
				default:
					v.errs.Schema(kp, "unknown property %q", key)
				}
			})
			if cm.Name == "" {
				v.errs.Schema(ip, "config mount requires a name")
				continue
			}
			mounts = append(mounts, cm)
		default:
			v.errs.Schema(ip, "config mount must be a string or an object")
		}
	}
	return mounts
}

// validateConfigs decodes the top-level configs mapping. Config data is
// open-ended; only external and data carry meaning here.
func (v *Validator) validateConfigs(node *yaml.Node, stack *model.StackFile) {
	p := docpath("configs")
	if !v.expectMapping(node, p) {
		return
	}
	forEach(node, func(name string, val *yaml.Node) {
		cp := p + "/" + name
		spec := &model.ConfigSpec{Data: map[string]string{}}
		if val.Kind == yaml.MappingNode {
			forEach(val, func(key string, body *yaml.Node) {
				switch key {
				case "external":
					spec.External = v.boolValue(body, cp+"/external")
				case "data":
					if v.expectMapping(body, cp+"/data") {
						forEach(body, func(k string, dv *yaml.Node) {
							s, _ := v.stringValue(dv, cp+"/data/"+k)
							spec.Data[k] = s
						})
					}
				}
			})
		} else if val.Kind != yaml.ScalarNode || val.Tag != "!!null" {
			v.errs.Schema(cp, "config must be an object")
		}
		stack.Configs[name] = spec
		stack.ConfigOrder = append(stack.ConfigOrder, name)
	})
}

func (v *Validator) validateSecrets(node *yaml.Node, stack *model.StackFile) {
	p := docpath("secrets")
	if !v.expectMapping(node, p) {
		return
	}
	forEach(node, func(name string, val *yaml.Node) {
		sp := p + "/" + name
		spec := &model.SecretSpec{}
		if val.Kind == yaml.MappingNode {
			forEach(val, func(key string, body *yaml.Node) {
				switch key {
				case "external":
					spec.External = v.boolValue(body, sp+"/external")
				default:
					v.errs.Schema(sp+"/"+key, "unknown property %q", key)
				}
			})
		} else if val.Kind != yaml.ScalarNode || val.Tag != "!!null" {
			v.errs.Schema(sp, "secret must be an object")
		}
		stack.Secrets[name] = spec
	})
}

func (v *Validator) validateTopVolumes(node *yaml.Node, stack *model.StackFile) {
	p := docpath("volumes")
	if !v.expectMapping(node, p) {
		return
	}
	forEach(node, func(name string, val *yaml.Node) {
		vp := p + "/" + name
		spec := &model.VolumeSpec{}
		if val.Kind == yaml.MappingNode {
			forEach(val, func(key string, body *yaml.Node) {
				switch key {
				case "accessModes":
					spec.AccessModes = v.stringSequence(body, vp+"/accessModes")
				case "storage":
					spec.Storage, _ = v.stringValue(body, vp+"/storage")
				default:
					v.errs.Schema(vp+"/"+key, "unknown property %q", key)
				}
			})
		} else if val.Kind != yaml.ScalarNode || val.Tag != "!!null" {
			v.errs.Schema(vp, "volume must be an object")
		}
		stack.Volumes[name] = spec
		stack.VolumeOrder = append(stack.VolumeOrder, name)
	})
}

// node helpers

func (v *Validator) expectMapping(node *yaml.Node, p string) bool {
	if node == nil || node.Kind != yaml.MappingNode {
		if p == "" {
			p = "/"
		}
		v.errs.Schema(p, "expected an object")
		return false
	}
	return true
}

func (v *Validator) expectSequence(node *yaml.Node, p string) bool {
	if node == nil || node.Kind != yaml.SequenceNode {
		v.errs.Schema(p, "expected a list")
		return false
	}
	return true
}

func (v *Validator) stringValue(node *yaml.Node, p string) (string, bool) {
	if node.Kind != yaml.ScalarNode || node.Tag == "!!map" || node.Tag == "!!seq" {
		v.errs.Schema(p, "expected a string")
		return "", false
	}
	return node.Value, true
}

func (v *Validator) intValue(node *yaml.Node, p string) int {
	if node.Kind != yaml.ScalarNode {
		v.errs.Schema(p, "expected a number")
		return 0
	}
	n, err := strconv.Atoi(node.Value)
	if err != nil {
		v.errs.Schema(p, "expected a number, got %q", node.Value)
		return 0
	}
	return n
}

func (v *Validator) boolValue(node *yaml.Node, p string) bool {
	if node.Kind != yaml.ScalarNode {
		v.errs.Schema(p, "expected a boolean")
		return false
	}
	b, err := strconv.ParseBool(node.Value)
	if err != nil {
		v.errs.Schema(p, "expected a boolean, got %q", node.Value)
		return false
	}
	return b
}

func (v *Validator) stringSequence(node *yaml.Node, p string) []string {
	if !v.expectSequence(node, p) {
		return nil
	}
	var out []string
	for i, item := range node.Content {
		if s, ok := v.stringValue(item, p+"/"+strconv.Itoa(i)); ok {
			out = append(out, s)
		}
	}
	return out
}

// forEach iterates a mapping node's key/value pairs in document order.
func forEach(node *yaml.Node, fn func(key string, val *yaml.Node)) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		fn(node.Content[i].Value, node.Content[i+1])
	}
}

func hasKey(node *yaml.Node, key string) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

// parseBareMount splits the "name:path[:ro]" string form.
func parseBareMount(s string) (model.VolumeMount, error) {
	parts := strings.Split(s, ":")
	m := model.VolumeMount{Kind: model.MountBare}
	switch len(parts) {
	case 2:
		m.Source, m.Path = parts[0], parts[1]
	case 3:
		if parts[2] != "ro" {
			return m, errInvalidMountFlag(parts[2])
		}
		m.Source, m.Path, m.ReadOnly = parts[0], parts[1], true
	default:
		return m, errMountSegments
	}
	if m.Source == "" || m.Path == "" {
		return m, errMountSegments
	}
	return m, nil
}
