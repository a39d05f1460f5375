package translator

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kstack-dev/kstack/internal/model"
	"github.com/kstack-dev/kstack/internal/naming"
	"github.com/kstack-dev/kstack/internal/utils/logger"
)

// Resolver turns a validated stack file into fully-qualified app graphs:
// every name reference checked against its namespace, sidecar inheritance
// applied, and every mount bound to a concrete pod volume source. Resolution
// never mutates the input model; merged sidecar specs are built fresh so the
// outcome is independent of resolution order.
type Resolver struct {
	stack *model.StackFile
	errs  *ErrorList
}

// NewResolver creates a resolver over a validated stack file.
func NewResolver(stack *model.StackFile) *Resolver {
	return &Resolver{stack: stack, errs: &ErrorList{}}
}

// ResolvedStack is the resolved app graph handed to the lowering engine.
type ResolvedStack struct {
	Apps  []*ResolvedApp
	Stack *model.StackFile
}

// ResolvedApp is one app with its sidecars flattened into a container list.
// Containers[0] is always the primary container.
type ResolvedApp struct {
	Name       string
	Containers []*ResolvedContainer
	PodVolumes []PodVolume
	Expose     []model.ExposeRule
	DependsOn  []string
}

// ResolvedContainer is a container spec with all references resolved.
// EnvFromConfigs holds ConfigMap reference names: external configs keep
// their declared name, inline ones carry the generated ConfigMap name.
type ResolvedContainer struct {
	Name           string
	Image          string
	Command        []string
	Ports          []PortBinding
	Env            []EnvVar
	EnvFromSecrets []string
	EnvFromConfigs []string
	Mounts         []ContainerMount
}

// PortBinding is a parsed host:container port mapping.
type PortBinding struct {
	HostPort      int
	ContainerPort int
	Protocol      string
}

// EnvVar is a single environment variable, either a literal value or a
// projection of one secret key.
type EnvVar struct {
	Name       string
	Value      string
	SecretName string
	SecretKey  string
}

// ContainerMount binds a pod volume into a container.
type ContainerMount struct {
	VolumeName string
	MountPath  string
	SubPath    string
	ReadOnly   bool
}

// PodVolumeKind discriminates pod volume sources.
type PodVolumeKind int

const (
	PodVolumeClaim PodVolumeKind = iota
	PodVolumeHostPath
	PodVolumeHostFile
	PodVolumeEmptyDir
	PodVolumeConfigMap
	PodVolumeSecret
)

// PodVolume is one entry of a Deployment's pod volume list.
type PodVolume struct {
	Name       string
	Kind       PodVolumeKind
	ClaimName  string
	HostPath   string
	ConfigName string
	SecretName string
}

// Resolve resolves every app. All reference errors are accumulated; the
// returned stack is only usable when the error list carries no errors.
func (r *Resolver) Resolve() (*ResolvedStack, *ErrorList) {
	logger.Debug("Resolving stack references")

	resolved := &ResolvedStack{Stack: r.stack}
	for _, name := range r.stack.AppNames() {
		resolved.Apps = append(resolved.Apps, r.resolveApp(name, r.stack.Apps[name]))
	}
	return resolved, r.errs
}

func (r *Resolver) resolveApp(name string, app *model.Container) *ResolvedApp {
	p := docpath("apps", name)
	ra := &ResolvedApp{Name: name, Expose: app.Expose, DependsOn: app.DependsOn}

	for _, dep := range app.DependsOn {
		if _, ok := r.stack.Apps[dep]; !ok {
			r.errs.Reference(p+"/depends_on", "app %q depends on unknown app %q", name, dep)
		}
	}

	volumes := newPodVolumeSet()

	main := r.resolveContainer(p, name, name, app, volumes)
	ra.Containers = append(ra.Containers, main)

	for _, scName := range app.SidecarNames() {
		sc := app.Sidecars[scName]
		merged := r.mergeSidecar(p+"/sidecars/"+scName, app, sc)
		rc := r.resolveContainer(p+"/sidecars/"+scName, name, naming.SidecarContainer(name, scName), merged, volumes)
		ra.Containers = append(ra.Containers, rc)
	}

	r.checkExpose(p, name, app, ra)

	ra.PodVolumes = volumes.list
	return ra
}

// mergeSidecar applies configuration inheritance: the sidecar implicitly
// inherits the parent's volumes and networks, additively and without
// overriding anything the sidecar declares itself. Environment stays
// independent. The parent record is never mutated.
func (r *Resolver) mergeSidecar(p string, parent, sidecar *model.Container) *model.Container {
	merged := *sidecar
	merged.Volumes = append([]model.VolumeMount{}, sidecar.Volumes...)

	for _, pv := range parent.Volumes {
		collision := false
		for _, sv := range sidecar.Volumes {
			if sv.ContainerPath() != pv.ContainerPath() {
				continue
			}
			if sv.Source != pv.Source || sv.Kind != pv.Kind {
				r.errs.Reference(p+"/volumes",
					"mount path %q collides with inherited mount of %q", sv.ContainerPath(), pv.Source)
			}
			collision = true
		}
		if !collision {
			merged.Volumes = append(merged.Volumes, pv)
		}
	}

	if len(sidecar.Networks) == 0 {
		merged.Networks = parent.Networks
	}
	return &merged
}

func (r *Resolver) resolveContainer(p, appName, containerName string, c *model.Container, volumes *podVolumeSet) *ResolvedContainer {
	rc := &ResolvedContainer{
		Name:    containerName,
		Image:   c.Image,
		Command: c.Command,
	}

	rc.Ports = r.resolvePorts(p, c)
	rc.Env = r.resolveEnv(p, c)
	r.resolveEnvFrom(p, c, rc)
	r.resolveMounts(p, containerName, c, rc, volumes)
	r.resolveVolumeFrom(p, c, rc, volumes)

	return rc
}

func (r *Resolver) resolvePorts(p string, c *model.Container) []PortBinding {
	var bindings []PortBinding
	if c.Port != 0 {
		// Legacy single-port form.
		bindings = append(bindings, PortBinding{HostPort: c.Port, ContainerPort: c.Port, Protocol: "TCP"})
	}
	for i, s := range c.Ports {
		host, container, proto, err := ParsePortMapping(s)
		if err != nil {
			r.errs.Reference(p+"/ports/"+strconv.Itoa(i), "invalid port mapping %q: %v", s, err)
			continue
		}
		bindings = append(bindings, PortBinding{HostPort: host, ContainerPort: container, Protocol: proto})
	}
	return bindings
}

// resolveEnv parses inline KEY=VALUE entries in declaration order. A later
// duplicate key overrides an earlier one.
func (r *Resolver) resolveEnv(p string, c *model.Container) []EnvVar {
	var env []EnvVar
	index := map[string]int{}
	for _, entry := range c.Env {
		key, value, _ := strings.Cut(entry, "=")
		if i, ok := index[key]; ok {
			env[i].Value = value
			continue
		}
		index[key] = len(env)
		env = append(env, EnvVar{Name: key, Value: value})
	}
	return env
}

// resolveEnvFrom checks secret and config references and appends single-key
// secret imports to the env list. Inline env wins on name collision.
func (r *Resolver) resolveEnvFrom(p string, c *model.Container, rc *ResolvedContainer) {
	if c.EnvFrom == nil {
		return
	}
	inline := map[string]bool{}
	for _, e := range rc.Env {
		inline[e.Name] = true
	}

	for i, ref := range c.EnvFrom.Secrets {
		rp := p + "/envFrom/secrets/" + strconv.Itoa(i)
		if !r.secretDeclared(ref.Name) {
			r.errs.Reference(rp, "undeclared secret %q", ref.Name)
			continue
		}
		if ref.Whole() {
			rc.EnvFromSecrets = append(rc.EnvFromSecrets, ref.Name)
			continue
		}
		if inline[ref.Set] {
			logger.Debug("Inline env overrides secret import",
				zap.String("var", ref.Set), zap.String("secret", ref.Name))
			continue
		}
		rc.Env = append(rc.Env, EnvVar{Name: ref.Set, SecretName: ref.Name, SecretKey: ref.Key})
	}

	for i, name := range c.EnvFrom.Configs {
		rp := p + "/envFrom/configs/" + strconv.Itoa(i)
		spec, ok := r.stack.Configs[name]
		if !ok {
			r.errs.Reference(rp, "undeclared config %q", name)
			continue
		}
		// External configs are imported under their cluster name, inline
		// ones under the name their generated ConfigMap will carry.
		refName := name
		if !spec.External {
			refName = naming.ConfigMap(name)
		}
		rc.EnvFromConfigs = append(rc.EnvFromConfigs, refName)
	}
}

// resolveMounts binds each volume mount to a pod volume. Bare mounts naming a
// top-level volume become claim references; unknown names fall back to a
// hostPath (absolute source) or emptyDir mount, logged explicitly.
func (r *Resolver) resolveMounts(p, containerName string, c *model.Container, rc *ResolvedContainer, volumes *podVolumeSet) {
	for i, m := range c.Volumes {
		mp := p + "/volumes/" + strconv.Itoa(i)
		switch m.Kind {
		case model.MountBare:
			var vol PodVolume
			switch {
			case r.stack.Volumes[m.Source] != nil:
				vol = PodVolume{Kind: PodVolumeClaim, ClaimName: m.Source}
			case strings.HasPrefix(m.Source, "/"):
				logger.Warn("Volume not declared, falling back to hostPath",
					zap.String("volume", m.Source), zap.String("container", containerName))
				vol = PodVolume{Kind: PodVolumeHostPath, HostPath: m.Source}
			default:
				logger.Warn("Volume not declared, falling back to emptyDir",
					zap.String("volume", m.Source), zap.String("container", containerName))
				vol = PodVolume{Kind: PodVolumeEmptyDir}
			}
			name := volumes.add(volumeKeyBare(m), containerName, i, vol)
			rc.Mounts = append(rc.Mounts, ContainerMount{VolumeName: name, MountPath: m.Path, ReadOnly: m.ReadOnly})
		case model.MountFile, model.MountDirectory:
			vol := PodVolume{Kind: PodVolumeHostPath, HostPath: m.Source}
			if m.Kind == model.MountFile {
				vol.Kind = PodVolumeHostFile
			}
			name := volumes.add(volumeKeyBare(m), containerName, i, vol)
			rc.Mounts = append(rc.Mounts, ContainerMount{VolumeName: name, MountPath: m.Mount, ReadOnly: m.ReadOnly})
		default:
			r.errs.Reference(mp, "unsupported volume mount form")
		}
	}
}

// resolveVolumeFrom binds secret and config file projections.
func (r *Resolver) resolveVolumeFrom(p string, c *model.Container, rc *ResolvedContainer, volumes *podVolumeSet) {
	if c.VolumeFrom == nil {
		return
	}

	for i, ref := range c.VolumeFrom.Secrets {
		rp := p + "/volumeFrom/secrets/" + strconv.Itoa(i)
		if !r.secretDeclared(ref.Name) {
			r.errs.Reference(rp, "undeclared secret %q", ref.Name)
			continue
		}
		name := volumes.addNamed(naming.SecretVolume(ref.Name), PodVolume{Kind: PodVolumeSecret, SecretName: ref.Name})
		if len(ref.Items) == 0 {
			rc.Mounts = append(rc.Mounts, ContainerMount{VolumeName: name, MountPath: "/secrets/" + ref.Name, ReadOnly: true})
			continue
		}
		for _, item := range ref.Items {
			rc.Mounts = append(rc.Mounts, ContainerMount{
				VolumeName: name,
				MountPath:  item.Mount,
				SubPath:    item.Key,
				ReadOnly:   true,
			})
		}
	}

	for i, cm := range c.VolumeFrom.Configs {
		rp := p + "/volumeFrom/configs/" + strconv.Itoa(i)
		spec, ok := r.stack.Configs[cm.Name]
		if !ok {
			r.errs.Reference(rp, "undeclared config %q", cm.Name)
			continue
		}
		// External configs are referenced by their cluster name, inline ones
		// by the name their generated ConfigMap will carry.
		refName := cm.Name
		if !spec.External {
			refName = naming.ConfigMap(cm.Name)
		}
		name := volumes.addNamed(refName, PodVolume{Kind: PodVolumeConfigMap, ConfigName: refName})
		mountPath := cm.Mount
		if mountPath == "" {
			mountPath = "/config/" + cm.Name
		}
		rc.Mounts = append(rc.Mounts, ContainerMount{VolumeName: name, MountPath: mountPath})
	}
}

// checkExpose cross-checks expose ports against the app's declared ports.
// Mismatches are surfaced as warnings without blocking resolution.
func (r *Resolver) checkExpose(p, name string, app *model.Container, ra *ResolvedApp) {
	if len(app.Expose) == 0 {
		return
	}
	declared := map[int]bool{}
	for _, c := range ra.Containers {
		for _, b := range c.Ports {
			declared[b.HostPort] = true
			declared[b.ContainerPort] = true
		}
	}
	for i, rule := range app.Expose {
		if rule.Port == 0 {
			continue
		}
		if !declared[rule.Port] {
			r.errs.Warn(p+"/expose/"+strconv.Itoa(i),
				"expose port %d does not match any declared port of app %q", rule.Port, name)
		}
	}
}

func (r *Resolver) secretDeclared(name string) bool {
	_, ok := r.stack.Secrets[name]
	return ok
}

// podVolumeSet collects pod volumes for one Deployment, deduplicating by
// source identity so a mount inherited by a sidecar shares the parent's
// volume entry instead of generating a second one.
type podVolumeSet struct {
	list  []PodVolume
	names map[string]string // source identity -> assigned volume name
}

func newPodVolumeSet() *podVolumeSet {
	return &podVolumeSet{names: map[string]string{}}
}

// add registers a positionally-named volume for a bare or host mount. The
// identity key keeps re-used sources from being emitted twice.
func (s *podVolumeSet) add(key, containerName string, index int, vol PodVolume) string {
	if name, ok := s.names[key]; ok {
		return name
	}
	vol.Name = naming.Volume(containerName, index)
	s.names[key] = vol.Name
	s.list = append(s.list, vol)
	return vol.Name
}

// addNamed registers a volume with a fixed deterministic name.
func (s *podVolumeSet) addNamed(name string, vol PodVolume) string {
	if existing, ok := s.names["named:"+name]; ok {
		return existing
	}
	vol.Name = name
	s.names["named:"+name] = name
	s.list = append(s.list, vol)
	return name
}

func volumeKeyBare(m model.VolumeMount) string {
	return "bare:" + m.Source + ":" + m.Path + ":" + m.Mount
}
