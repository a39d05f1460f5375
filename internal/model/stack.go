package model

// StackFile is the top-level stack descriptor. It mirrors the on-disk
// compose-like format: apps keyed by name plus shared configs, secrets and
// volumes that apps reference by name.
type StackFile struct {
	Apps    map[string]*Container  `yaml:"apps" json:"apps"`
	Configs map[string]*ConfigSpec `yaml:"configs,omitempty" json:"configs,omitempty"`
	Secrets map[string]*SecretSpec `yaml:"secrets,omitempty" json:"secrets,omitempty"`
	Volumes map[string]*VolumeSpec `yaml:"volumes,omitempty" json:"volumes,omitempty"`

	// AppOrder and VolumeOrder preserve the declaration order of the mapping
	// keys so repeated runs on the same file emit resources in the same order.
	AppOrder    []string `yaml:"-" json:"-"`
	VolumeOrder []string `yaml:"-" json:"-"`
	ConfigOrder []string `yaml:"-" json:"-"`
}

// Container describes an app or a sidecar. Sidecars use the same shape but
// must not declare sidecars of their own (one level of nesting only).
type Container struct {
	Name       string                `yaml:"name,omitempty" json:"name,omitempty"`
	Image      string                `yaml:"image" json:"image"`
	Command    []string              `yaml:"command,omitempty" json:"command,omitempty"`
	Port       int                   `yaml:"port,omitempty" json:"port,omitempty"`
	Ports      []string              `yaml:"ports,omitempty" json:"ports,omitempty"`
	Env        []string              `yaml:"env,omitempty" json:"env,omitempty"`
	Volumes    []VolumeMount         `yaml:"volumes,omitempty" json:"volumes,omitempty"`
	Networks   []string              `yaml:"networks,omitempty" json:"networks,omitempty"`
	DependsOn  []string              `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	Expose     []ExposeRule          `yaml:"expose,omitempty" json:"expose,omitempty"`
	EnvFrom    *EnvFrom              `yaml:"envFrom,omitempty" json:"envFrom,omitempty"`
	VolumeFrom *VolumeFrom           `yaml:"volumeFrom,omitempty" json:"volumeFrom,omitempty"`
	Sidecars   map[string]*Container `yaml:"sidecars,omitempty" json:"sidecars,omitempty"`

	SidecarOrder []string `yaml:"-" json:"-"`
}

// ConfigSpec is a named config: either inline key/value data lowered to a
// ConfigMap, or a reference to one that already exists in the cluster.
type ConfigSpec struct {
	External bool              `yaml:"external,omitempty" json:"external,omitempty"`
	Data     map[string]string `yaml:"data,omitempty" json:"data,omitempty"`
}

// SecretSpec is a named secret reference. Secrets are never created during
// lowering; external marks ones expected to pre-exist in the cluster.
type SecretSpec struct {
	External bool `yaml:"external,omitempty" json:"external,omitempty"`
}

// VolumeSpec is a top-level named volume lowered to a PersistentVolumeClaim.
type VolumeSpec struct {
	AccessModes []string `yaml:"accessModes,omitempty" json:"accessModes,omitempty"`
	Storage     string   `yaml:"storage,omitempty" json:"storage,omitempty"`
}

// MountKind discriminates the three VolumeMount forms. The discriminant is
// resolved once at parse time so later stages never re-inspect raw shapes.
type MountKind int

const (
	// MountBare is the "name:path[:ro]" string form.
	MountBare MountKind = iota
	// MountFile projects a single file into the container.
	MountFile
	// MountDirectory mounts a directory into the container.
	MountDirectory
)

// VolumeMount is the tagged union over the three mount forms. For MountBare,
// Source is the volume name (or host path) and Path the container path. For
// MountFile/MountDirectory, Source is the file or directory path and Mount
// the container path.
type VolumeMount struct {
	Kind     MountKind `yaml:"-" json:"-"`
	Source   string    `yaml:"-" json:"-"`
	Path     string    `yaml:"-" json:"-"`
	Mount    string    `yaml:"-" json:"-"`
	ReadOnly bool      `yaml:"-" json:"-"`
}

// ContainerPath returns the path the mount occupies inside the container.
func (m VolumeMount) ContainerPath() string {
	if m.Kind == MountBare {
		return m.Path
	}
	return m.Mount
}

// ExposeRule publishes an app through an ingress host.
type ExposeRule struct {
	Host             string `yaml:"host" json:"host"`
	Port             int    `yaml:"port,omitempty" json:"port,omitempty"`
	Path             string `yaml:"path,omitempty" json:"path,omitempty"`
	Protocol         string `yaml:"protocol,omitempty" json:"protocol,omitempty"`
	IngressClassName string `yaml:"ingressClassName,omitempty" json:"ingressClassName,omitempty"`
}

// EnvFrom imports environment variables from secrets and configs.
type EnvFrom struct {
	Secrets []EnvFromSecretRef `yaml:"secrets,omitempty" json:"secrets,omitempty"`
	Configs []string           `yaml:"configs,omitempty" json:"configs,omitempty"`
}

// EnvFromSecretRef is either a whole-secret import (Key and Set empty) or a
// single-key import renamed to the env var Set.
type EnvFromSecretRef struct {
	Name string `yaml:"-" json:"-"`
	Key  string `yaml:"-" json:"-"`
	Set  string `yaml:"-" json:"-"`
}

// Whole reports whether the reference imports the entire secret.
func (r EnvFromSecretRef) Whole() bool { return r.Key == "" && r.Set == "" }

// VolumeFrom mounts secret keys and config data as files.
type VolumeFrom struct {
	Secrets []VolumeFromSecretRef `yaml:"secrets,omitempty" json:"secrets,omitempty"`
	Configs []ConfigMount         `yaml:"configs,omitempty" json:"configs,omitempty"`
}

// VolumeFromSecretRef projects secret keys to files. An empty Items slice
// means the whole secret is mounted (bare string form).
type VolumeFromSecretRef struct {
	Name  string     `yaml:"-" json:"-"`
	Items []KeyMount `yaml:"-" json:"-"`
}

// KeyMount projects one secret key to one file path.
type KeyMount struct {
	Key   string `yaml:"key" json:"key"`
	Mount string `yaml:"mount" json:"mount"`
}

// ConfigMount mounts a named config's data under a directory.
type ConfigMount struct {
	Name  string `yaml:"name" json:"name"`
	Mount string `yaml:"mount,omitempty" json:"mount,omitempty"`
}

// SidecarNames returns sidecar names in declaration order.
func (c *Container) SidecarNames() []string {
	if len(c.SidecarOrder) == len(c.Sidecars) {
		return c.SidecarOrder
	}
	names := make([]string, 0, len(c.Sidecars))
	for name := range c.Sidecars {
		names = append(names, name)
	}
	return names
}

// AppNames returns app names in declaration order.
func (s *StackFile) AppNames() []string {
	if len(s.AppOrder) == len(s.Apps) {
		return s.AppOrder
	}
	names := make([]string, 0, len(s.Apps))
	for name := range s.Apps {
		names = append(names, name)
	}
	return names
}

// VolumeNames returns top-level volume names in declaration order.
func (s *StackFile) VolumeNames() []string {
	if len(s.VolumeOrder) == len(s.Volumes) {
		return s.VolumeOrder
	}
	names := make([]string, 0, len(s.Volumes))
	for name := range s.Volumes {
		names = append(names, name)
	}
	return names
}

// ConfigNames returns config names in declaration order.
func (s *StackFile) ConfigNames() []string {
	if len(s.ConfigOrder) == len(s.Configs) {
		return s.ConfigOrder
	}
	names := make([]string, 0, len(s.Configs))
	for name := range s.Configs {
		names = append(names, name)
	}
	return names
}
