package translator

import (
	"strings"
	"testing"

	"github.com/kstack-dev/kstack/internal/model"
)

// validate parses and validates a YAML document, returning the decoded stack
// and the collected error list.
func validate(t *testing.T, doc string) (*model.StackFile, *ErrorList) {
	t.Helper()
	root, err := (&YAMLParser{}).Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Failed to parse document: %v", err)
	}
	return NewValidator().Validate(root)
}

// schemaErrorAt reports whether the list carries a SchemaError whose path
// contains the given fragment.
func schemaErrorAt(errs *ErrorList, fragment string) bool {
	for _, err := range errs.Errors() {
		if se, ok := err.(*SchemaError); ok && strings.Contains(se.Path, fragment) {
			return true
		}
	}
	return false
}

func TestValidateMinimalStack(t *testing.T) {
	stack, errs := validate(t, `
apps:
  web:
    image: nginx:1.27
`)
	if errs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", errs.Errors())
	}
	app := stack.Apps["web"]
	if app == nil {
		t.Fatal("App web not decoded")
	}
	if app.Image != "nginx:1.27" {
		t.Errorf("Image = %q, want nginx:1.27", app.Image)
	}
}

func TestValidateUnknownTopLevelKey(t *testing.T) {
	_, errs := validate(t, `
apps:
  web:
    image: nginx
services:
  web: {}
`)
	if !schemaErrorAt(errs, "/services") {
		t.Errorf("Expected schema error at /services, got: %v", errs.Errors())
	}
}

func TestValidateMissingApps(t *testing.T) {
	_, errs := validate(t, `
configs:
  app-settings:
    data:
      MODE: dev
`)
	if !errs.HasErrors() {
		t.Fatal("Expected an error for a document without apps")
	}
}

func TestValidateMissingImage(t *testing.T) {
	_, errs := validate(t, `
apps:
  web:
    port: 80
`)
	if !schemaErrorAt(errs, "/apps/web") {
		t.Errorf("Expected schema error at /apps/web, got: %v", errs.Errors())
	}
}

func TestValidateUnknownContainerKey(t *testing.T) {
	_, errs := validate(t, `
apps:
  web:
    image: nginx
    restart: always
`)
	if !schemaErrorAt(errs, "/apps/web/restart") {
		t.Errorf("Expected schema error at /apps/web/restart, got: %v", errs.Errors())
	}
}

func TestValidateNestedSidecarsRejected(t *testing.T) {
	_, errs := validate(t, `
apps:
  web:
    image: nginx
    sidecars:
      metrics:
        image: exporter
        sidecars:
          inner:
            image: busybox
`)
	if !schemaErrorAt(errs, "/apps/web/sidecars/metrics/sidecars") {
		t.Errorf("Expected nested sidecar rejection, got: %v", errs.Errors())
	}
}

func TestValidateSidecarDecoding(t *testing.T) {
	stack, errs := validate(t, `
apps:
  web:
    image: nginx
    sidecars:
      metrics:
        image: exporter:v1
        ports:
          - "9090"
`)
	if errs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", errs.Errors())
	}
	sc := stack.Apps["web"].Sidecars["metrics"]
	if sc == nil {
		t.Fatal("Sidecar metrics not decoded")
	}
	if sc.Image != "exporter:v1" {
		t.Errorf("Sidecar image = %q, want exporter:v1", sc.Image)
	}
	if got := stack.Apps["web"].SidecarNames(); len(got) != 1 || got[0] != "metrics" {
		t.Errorf("SidecarNames = %v, want [metrics]", got)
	}
}

func TestValidateEnvForm(t *testing.T) {
	_, errs := validate(t, `
apps:
  web:
    image: nginx
    env:
      - GOOD=1
      - NOEQUALS
`)
	if !schemaErrorAt(errs, "/apps/web/env/1") {
		t.Errorf("Expected schema error at env/1, got: %v", errs.Errors())
	}
}

func TestValidateMountForms(t *testing.T) {
	stack, errs := validate(t, `
apps:
  web:
    image: nginx
    volumes:
      - data:/var/lib/data
      - certs:/etc/certs:ro
      - file: /etc/hosts
        path: /etc/hosts
        mount: /etc/hosts
      - directory: /opt/static
        path: /opt/static
        mount: /usr/share/nginx/html
volumes:
  data: {}
  certs: {}
`)
	if errs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", errs.Errors())
	}
	mounts := stack.Apps["web"].Volumes
	if len(mounts) != 4 {
		t.Fatalf("Expected 4 mounts, got %d", len(mounts))
	}
	if mounts[0].Kind != model.MountBare || mounts[0].Source != "data" {
		t.Errorf("Mount 0 = %+v", mounts[0])
	}
	if !mounts[1].ReadOnly {
		t.Errorf("Mount 1 should be read-only: %+v", mounts[1])
	}
	if mounts[2].Kind != model.MountFile {
		t.Errorf("Mount 2 kind = %v, want MountFile", mounts[2].Kind)
	}
	if mounts[3].Kind != model.MountDirectory {
		t.Errorf("Mount 3 kind = %v, want MountDirectory", mounts[3].Kind)
	}
}

func TestValidateMountObjectShape(t *testing.T) {
	// file and directory are mutually exclusive
	_, errs := validate(t, `
apps:
  web:
    image: nginx
    volumes:
      - file: /a
        directory: /b
        path: /a
        mount: /a
`)
	if !schemaErrorAt(errs, "/apps/web/volumes/0") {
		t.Errorf("Expected mutual exclusion error, got: %v", errs.Errors())
	}

	// neither discriminant
	_, errs = validate(t, `
apps:
  web:
    image: nginx
    volumes:
      - path: /a
        mount: /a
`)
	if !schemaErrorAt(errs, "/apps/web/volumes/0") {
		t.Errorf("Expected missing discriminant error, got: %v", errs.Errors())
	}

	// missing mount
	_, errs = validate(t, `
apps:
  web:
    image: nginx
    volumes:
      - file: /a
        path: /a
`)
	if !schemaErrorAt(errs, "/apps/web/volumes/0") {
		t.Errorf("Expected missing mount error, got: %v", errs.Errors())
	}
}

func TestValidateEnvFromSecretShapes(t *testing.T) {
	stack, errs := validate(t, `
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
	refs := stack.Apps["web"].EnvFrom.Secrets
	if len(refs) != 2 {
		t.Fatalf("Expected 2 secret refs, got %d", len(refs))
	}
	if !refs[0].Whole() {
		t.Errorf("First ref should be whole-secret import: %+v", refs[0])
	}
	if refs[1].Key != "password" || refs[1].Set != "DB_PASSWORD" {
		t.Errorf("Second ref = %+v", refs[1])
	}
}

func TestValidateEnvFromSecretMissingSet(t *testing.T) {
	_, errs := validate(t, `
apps:
  web:
    image: nginx
    envFrom:
      secrets:
        - db-credentials:
            key: password
secrets:
  db-credentials: {}
`)
	if !schemaErrorAt(errs, "/envFrom/secrets/0") {
		t.Errorf("Expected error for key without set, got: %v", errs.Errors())
	}
}

func TestValidateVolumeFromSecretRequiresItems(t *testing.T) {
	_, errs := validate(t, `
apps:
  web:
    image: nginx
    volumeFrom:
      secrets:
        - tls-cert:
            mount: /etc/tls
secrets:
  tls-cert: {}
`)
	if !errs.HasErrors() {
		t.Fatal("Expected error for object secret reference without items")
	}
}

func TestValidateVolumeFromShapes(t *testing.T) {
	stack, errs := validate(t, `
apps:
  web:
    image: nginx
    volumeFrom:
      secrets:
        - whole-secret
        - tls-cert:
            items:
              - key: tls.crt
                mount: /etc/tls/tls.crt
      configs:
        - app-settings
        - name: nginx-conf
          mount: /etc/nginx/conf.d
secrets:
  whole-secret: {}
  tls-cert: {}
configs:
  app-settings:
    data:
      MODE: dev
  nginx-conf:
    data:
      default.conf: "server {}"
`)
	if errs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", errs.Errors())
	}
	vf := stack.Apps["web"].VolumeFrom
	if len(vf.Secrets) != 2 || len(vf.Configs) != 2 {
		t.Fatalf("Unexpected volumeFrom shape: %+v", vf)
	}
	if len(vf.Secrets[0].Items) != 0 {
		t.Errorf("Bare secret ref should have no items: %+v", vf.Secrets[0])
	}
	if vf.Secrets[1].Items[0].Key != "tls.crt" {
		t.Errorf("Item key = %q, want tls.crt", vf.Secrets[1].Items[0].Key)
	}
	if vf.Configs[1].Mount != "/etc/nginx/conf.d" {
		t.Errorf("Config mount = %q", vf.Configs[1].Mount)
	}
}

func TestValidateExposeForms(t *testing.T) {
	stack, errs := validate(t, `
apps:
  web:
    image: nginx
    ports:
      - "8080"
    expose:
      - host: web.example.com
        port: 8080
      - legacy.example.com:
          port: 8080
          path: /api
`)
	if errs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", errs.Errors())
	}
	rules := stack.Apps["web"].Expose
	if len(rules) != 2 {
		t.Fatalf("Expected 2 expose rules, got %d", len(rules))
	}
	if rules[0].Host != "web.example.com" || rules[0].Port != 8080 {
		t.Errorf("Rule 0 = %+v", rules[0])
	}
	if rules[1].Host != "legacy.example.com" || rules[1].Path != "/api" {
		t.Errorf("Rule 1 = %+v", rules[1])
	}
}

func TestValidateSecretsClosedShape(t *testing.T) {
	_, errs := validate(t, `
apps:
  web:
    image: nginx
secrets:
  db-credentials:
    data:
      user: admin
`)
	if !schemaErrorAt(errs, "/secrets/db-credentials") {
		t.Errorf("Expected error for secret data, got: %v", errs.Errors())
	}
}

func TestValidateVolumesClosedShape(t *testing.T) {
	_, errs := validate(t, `
apps:
  web:
    image: nginx
volumes:
  data:
    size: 5Gi
`)
	if !schemaErrorAt(errs, "/volumes/data") {
		t.Errorf("Expected error for unknown volume key, got: %v", errs.Errors())
	}
}

func TestValidateAccumulatesErrors(t *testing.T) {
	_, errs := validate(t, `
apps:
  web:
    restart: always
    env:
      - BAD
  worker:
    image: busybox
    ports:
      - "notaport"
`)
	if len(errs.Errors()) < 3 {
		t.Errorf("Expected at least 3 accumulated errors, got %d: %v", len(errs.Errors()), errs.Errors())
	}
}

func TestValidatePreservesDeclarationOrder(t *testing.T) {
	stack, errs := validate(t, `
apps:
  zeta:
    image: a
  alpha:
    image: b
  mid:
    image: c
volumes:
  z-data: {}
  a-data: {}
`)
	if errs.HasErrors() {
		t.Fatalf("Unexpected errors: %v", errs.Errors())
	}
	apps := stack.AppNames()
	if apps[0] != "zeta" || apps[1] != "alpha" || apps[2] != "mid" {
		t.Errorf("AppNames = %v, want declaration order", apps)
	}
	vols := stack.VolumeNames()
	if vols[0] != "z-data" || vols[1] != "a-data" {
		t.Errorf("VolumeNames = %v, want declaration order", vols)
	}
}
