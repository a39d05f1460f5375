package translator

import (
	"strings"
	"testing"

	"github.com/kstack-dev/kstack/internal/model"
)

// resolve validates and resolves a YAML document in one step.
func resolve(t *testing.T, doc string) (*ResolvedStack, *ErrorList) {
	t.Helper()
	stack, errs := validate(t, doc)
	if errs.HasErrors() {
		t.Fatalf("Document failed validation: %v", errs.Errors())
	}
	return NewResolver(stack).Resolve()
}

func referenceErrorMentions(errs *ErrorList, fragment string) bool {
	for _, err := range errs.Errors() {
		if re, ok := err.(*ReferenceError); ok && re.Severity == SeverityError &&
			strings.Contains(re.Message, fragment) {
			return true
		}
	}
	return false
}

func TestResolveSidecarInheritsVolumes(t *testing.T) {
	rs, errs := resolve(t, `
apps:
  web:
    image: nginx
    volumes:
      - shared:/var/shared
    networks:
      - backend
    sidecars:
      logger:
        image: fluentd
volumes:
  shared: {}
`)
	if errs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", errs.Errors())
	}

	app := rs.Apps[0]
	if len(app.Containers) != 2 {
		t.Fatalf("Expected 2 containers, got %d", len(app.Containers))
	}
	main, sidecar := app.Containers[0], app.Containers[1]
	if sidecar.Name != "web-logger" {
		t.Errorf("Sidecar container name = %q, want web-logger", sidecar.Name)
	}

	// The sidecar inherits exactly the parent's mounts, bound to the same
	// pod volume entry.
	if len(sidecar.Mounts) != 1 || len(main.Mounts) != 1 {
		t.Fatalf("Mounts: main %d, sidecar %d, want 1 each", len(main.Mounts), len(sidecar.Mounts))
	}
	if sidecar.Mounts[0].VolumeName != main.Mounts[0].VolumeName {
		t.Errorf("Sidecar mount volume %q does not share parent volume %q",
			sidecar.Mounts[0].VolumeName, main.Mounts[0].VolumeName)
	}
	if len(app.PodVolumes) != 1 {
		t.Errorf("Expected 1 deduplicated pod volume, got %d", len(app.PodVolumes))
	}
}

func TestResolveSidecarInheritanceIsAdditive(t *testing.T) {
	rs, errs := resolve(t, `
apps:
  web:
    image: nginx
    volumes:
      - shared:/var/shared
    sidecars:
      logger:
        image: fluentd
        volumes:
          - logs:/var/log
volumes:
  shared: {}
  logs: {}
`)
	if errs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", errs.Errors())
	}
	sidecar := rs.Apps[0].Containers[1]
	if len(sidecar.Mounts) != 2 {
		t.Fatalf("Expected sidecar to keep its own mount plus the inherited one, got %d", len(sidecar.Mounts))
	}
	// Own mounts come first, inherited ones after.
	if sidecar.Mounts[0].MountPath != "/var/log" {
		t.Errorf("First sidecar mount = %+v, want own /var/log mount", sidecar.Mounts[0])
	}
}

func TestResolveSidecarMountCollision(t *testing.T) {
	stack, errs := validate(t, `
apps:
  web:
    image: nginx
    volumes:
      - shared:/data
    sidecars:
      logger:
        image: fluentd
        volumes:
          - other:/data
volumes:
  shared: {}
  other: {}
`)
	if errs.HasErrors() {
		t.Fatalf("Document failed validation: %v", errs.Errors())
	}
	_, resolveErrs := NewResolver(stack).Resolve()
	if !referenceErrorMentions(resolveErrs, "collides") {
		t.Errorf("Expected mount collision error, got: %v", resolveErrs.Errors())
	}
}

func TestResolveSidecarOwnMountIdenticalToParent(t *testing.T) {
	// Declaring the same source at the same path is not a collision.
	rs, errs := resolve(t, `
apps:
  web:
    image: nginx
    volumes:
      - shared:/data
    sidecars:
      logger:
        image: fluentd
        volumes:
          - shared:/data
volumes:
  shared: {}
`)
	if errs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", errs.Errors())
	}
	if len(rs.Apps[0].Containers[1].Mounts) != 1 {
		t.Errorf("Identical redeclaration should not duplicate the mount: %+v",
			rs.Apps[0].Containers[1].Mounts)
	}
}

func TestResolveUndeclaredSecret(t *testing.T) {
	_, errs := resolve(t, `
apps:
  web:
    image: nginx
    envFrom:
      secrets:
        - missing-secret
`)
	if !referenceErrorMentions(errs, "missing-secret") {
		t.Errorf("Expected undeclared secret error naming the secret, got: %v", errs.Errors())
	}
}

func TestResolveVolumeFromUndeclaredSecret(t *testing.T) {
	_, errs := resolve(t, `
apps:
  app:
    image: x
    volumeFrom:
      secrets:
        - cfg:
            items:
              - key: a
                mount: /etc/a
`)
	if !referenceErrorMentions(errs, "cfg") {
		t.Errorf("Expected undeclared secret error citing cfg, got: %v", errs.Errors())
	}
}

func TestResolveUndeclaredConfig(t *testing.T) {
	_, errs := resolve(t, `
apps:
  web:
    image: nginx
    envFrom:
      configs:
        - missing-config
`)
	if !referenceErrorMentions(errs, "missing-config") {
		t.Errorf("Expected undeclared config error, got: %v", errs.Errors())
	}
}

func TestResolveUnknownDependency(t *testing.T) {
	_, errs := resolve(t, `
apps:
  web:
    image: nginx
    depends_on:
      - database
`)
	if !referenceErrorMentions(errs, "database") {
		t.Errorf("Expected unknown dependency error, got: %v", errs.Errors())
	}
}

func TestResolveEnvDuplicateOverride(t *testing.T) {
	rs, errs := resolve(t, `
apps:
  web:
    image: nginx
    env:
      - MODE=dev
      - MODE=prod
`)
	if errs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", errs.Errors())
	}
	env := rs.Apps[0].Containers[0].Env
	if len(env) != 1 || env[0].Value != "prod" {
		t.Errorf("Env = %+v, want single MODE=prod", env)
	}
}

func TestResolveInlineEnvWinsOverSecretImport(t *testing.T) {
	rs, errs := resolve(t, `
apps:
  web:
    image: nginx
    env:
      - DB_PASSWORD=local
    envFrom:
      secrets:
        - db-credentials:
            key: password
            set: DB_PASSWORD
secrets:
  db-credentials: {}
`)
	if errs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", errs.Errors())
	}
	env := rs.Apps[0].Containers[0].Env
	if len(env) != 1 {
		t.Fatalf("Expected 1 env var, got %+v", env)
	}
	if env[0].Value != "local" || env[0].SecretName != "" {
		t.Errorf("Inline env should win over the secret import: %+v", env[0])
	}
}

func TestResolveSecretKeyImport(t *testing.T) {
	rs, errs := resolve(t, `
apps:
  web:
    image: nginx
    envFrom:
      secrets:
        - whole-secret
        - db-credentials:
            key: password
            set: DB_PASSWORD
secrets:
  whole-secret: {}
  db-credentials: {}
`)
	if errs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", errs.Errors())
	}
	c := rs.Apps[0].Containers[0]
	if len(c.EnvFromSecrets) != 1 || c.EnvFromSecrets[0] != "whole-secret" {
		t.Errorf("EnvFromSecrets = %v, want [whole-secret]", c.EnvFromSecrets)
	}
	if len(c.Env) != 1 || c.Env[0].SecretName != "db-credentials" || c.Env[0].SecretKey != "password" {
		t.Errorf("Env = %+v, want DB_PASSWORD from db-credentials/password", c.Env)
	}
}

func TestResolveMountFallbacks(t *testing.T) {
	rs, errs := resolve(t, `
apps:
  web:
    image: nginx
    volumes:
      - declared:/var/lib/data
      - /host/path:/mnt/host
      - scratch:/tmp/scratch
volumes:
  declared: {}
`)
	if errs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", errs.Errors())
	}
	vols := rs.Apps[0].PodVolumes
	if len(vols) != 3 {
		t.Fatalf("Expected 3 pod volumes, got %d", len(vols))
	}
	if vols[0].Kind != PodVolumeClaim || vols[0].ClaimName != "declared" {
		t.Errorf("Volume 0 = %+v, want claim for declared", vols[0])
	}
	if vols[1].Kind != PodVolumeHostPath || vols[1].HostPath != "/host/path" {
		t.Errorf("Volume 1 = %+v, want hostPath fallback", vols[1])
	}
	if vols[2].Kind != PodVolumeEmptyDir {
		t.Errorf("Volume 2 = %+v, want emptyDir fallback", vols[2])
	}
}

func TestResolveVolumeNamesArePositional(t *testing.T) {
	rs, errs := resolve(t, `
apps:
  web:
    image: nginx
    volumes:
      - data:/a
      - data2:/b
volumes:
  data: {}
  data2: {}
`)
	if errs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", errs.Errors())
	}
	mounts := rs.Apps[0].Containers[0].Mounts
	if mounts[0].VolumeName != "vol-web-0" || mounts[1].VolumeName != "vol-web-1" {
		t.Errorf("Volume names = %q, %q, want vol-web-0, vol-web-1",
			mounts[0].VolumeName, mounts[1].VolumeName)
	}
}

func TestResolveVolumeFromSecretItems(t *testing.T) {
	rs, errs := resolve(t, `
apps:
  web:
    image: nginx
    volumeFrom:
      secrets:
        - tls-cert:
            items:
              - key: tls.crt
                mount: /etc/tls/tls.crt
        - whole-secret
secrets:
  tls-cert: {}
  whole-secret: {}
`)
	if errs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", errs.Errors())
	}
	mounts := rs.Apps[0].Containers[0].Mounts
	if len(mounts) != 2 {
		t.Fatalf("Expected 2 mounts, got %d", len(mounts))
	}
	if mounts[0].SubPath != "tls.crt" || mounts[0].MountPath != "/etc/tls/tls.crt" || !mounts[0].ReadOnly {
		t.Errorf("Item mount = %+v", mounts[0])
	}
	if mounts[1].MountPath != "/secrets/whole-secret" {
		t.Errorf("Whole-secret mount path = %q, want /secrets/whole-secret", mounts[1].MountPath)
	}
}

func TestResolveVolumeFromConfigNames(t *testing.T) {
	rs, errs := resolve(t, `
apps:
  web:
    image: nginx
    volumeFrom:
      configs:
        - inline-conf
        - name: cluster-conf
          mount: /etc/cluster
configs:
  inline-conf:
    data:
      a: b
  cluster-conf:
    external: true
`)
	if errs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", errs.Errors())
	}
	vols := rs.Apps[0].PodVolumes
	if len(vols) != 2 {
		t.Fatalf("Expected 2 pod volumes, got %d", len(vols))
	}
	// Inline configs are referenced through their generated ConfigMap name,
	// external ones through their cluster name.
	if vols[0].ConfigName != "config-inline-conf" {
		t.Errorf("Inline config ref = %q, want config-inline-conf", vols[0].ConfigName)
	}
	if vols[1].ConfigName != "cluster-conf" {
		t.Errorf("External config ref = %q, want cluster-conf", vols[1].ConfigName)
	}

	mounts := rs.Apps[0].Containers[0].Mounts
	if mounts[0].MountPath != "/config/inline-conf" {
		t.Errorf("Default config mount = %q, want /config/inline-conf", mounts[0].MountPath)
	}
	if mounts[1].MountPath != "/etc/cluster" {
		t.Errorf("Explicit config mount = %q, want /etc/cluster", mounts[1].MountPath)
	}
}

func TestResolveEnvFromConfigNames(t *testing.T) {
	rs, errs := resolve(t, `
apps:
  web:
    image: nginx
    envFrom:
      configs:
        - app-settings
        - cluster-conf
configs:
  app-settings:
    data:
      a: b
  cluster-conf:
    external: true
`)
	if errs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", errs.Errors())
	}
	refs := rs.Apps[0].Containers[0].EnvFromConfigs
	if len(refs) != 2 {
		t.Fatalf("Expected 2 config imports, got %d", len(refs))
	}
	// Same policy as volumeFrom: inline configs are imported under their
	// generated ConfigMap name, external ones under their cluster name.
	if refs[0] != "config-app-settings" {
		t.Errorf("Inline config ref = %q, want config-app-settings", refs[0])
	}
	if refs[1] != "cluster-conf" {
		t.Errorf("External config ref = %q, want cluster-conf", refs[1])
	}
}

func TestResolveExposePortMismatchIsWarning(t *testing.T) {
	rs, errs := resolve(t, `
apps:
  web:
    image: nginx
    ports:
      - "8080"
    expose:
      - host: web.example.com
        port: 9999
`)
	if errs.HasErrors() {
		t.Fatalf("Port mismatch must not fail resolution: %v", errs.Errors())
	}
	if len(errs.Warnings()) != 1 {
		t.Fatalf("Expected 1 warning, got %v", errs.Warnings())
	}
	if rs == nil || len(rs.Apps) != 1 {
		t.Fatal("Resolution should still produce the app graph")
	}
}

func TestResolveNeverMutatesInput(t *testing.T) {
	stack, errs := validate(t, `
apps:
  web:
    image: nginx
    volumes:
      - shared:/var/shared
    sidecars:
      logger:
        image: fluentd
volumes:
  shared: {}
`)
	if errs.HasErrors() {
		t.Fatalf("Document failed validation: %v", errs.Errors())
	}

	before := len(stack.Apps["web"].Sidecars["logger"].Volumes)
	if _, resolveErrs := NewResolver(stack).Resolve(); resolveErrs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", resolveErrs.Errors())
	}
	after := len(stack.Apps["web"].Sidecars["logger"].Volumes)
	if before != after {
		t.Errorf("Resolution mutated the sidecar's volume list: %d -> %d", before, after)
	}

	// A second resolution must produce the same result.
	rs1, _ := NewResolver(stack).Resolve()
	rs2, _ := NewResolver(stack).Resolve()
	if len(rs1.Apps[0].Containers[1].Mounts) != len(rs2.Apps[0].Containers[1].Mounts) {
		t.Errorf("Repeated resolution diverged")
	}
}

func TestExternalNamesSorted(t *testing.T) {
	stack := &model.StackFile{
		Secrets: map[string]*model.SecretSpec{
			"zeta":  {External: true},
			"alpha": {External: true},
			"local": {},
		},
	}
	got := ExternalSecrets(stack)
	if len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
		t.Errorf("ExternalSecrets = %v, want [alpha zeta]", got)
	}
}
