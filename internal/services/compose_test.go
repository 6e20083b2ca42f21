package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/eeforge/eectl/internal/config"
)

func testComposeInput() ComposeInput {
	return ComposeInput{
		ImageVersions: map[string]string{
			imageProxy: "v4.0.0",
			imageDB:    "v4.0.1",
			imageRedis: "v4.0.2",
		},
		Ports:          ProxyPorts{HTTP: 8080, HTTPS: 8443},
		UID:            1000,
		GID:            1000,
		DBRootPassword: "s3cretpassword",
	}
}

func TestBuildComposeDocument(t *testing.T) {
	doc, err := BuildComposeDocument(testComposeInput(), GlobalGroups(t.TempDir()))
	require.NoError(t, err)

	require.Len(t, doc.Services, 3)
	proxy, ok := doc.Service(ProxyService)
	require.True(t, ok)
	assert.Equal(t, ProxyContainer, proxy.ContainerName)
	assert.Equal(t, "easyengine/nginx-proxy:v4.0.0", proxy.Image)
	assert.Equal(t, []string{"8080:80", "8443:443"}, []string{proxy.Ports[0].String(), proxy.Ports[1].String()})
	assert.Contains(t, proxy.Environment, "LOCAL_USER_ID=1000")
	assert.Equal(t, []NetworkName{FrontendNetwork}, proxy.Networks)

	db, ok := doc.Service(DBService)
	require.True(t, ok)
	assert.Equal(t, []string{"MYSQL_ROOT_PASSWORD=s3cretpassword"}, db.Environment)
	assert.Equal(t, []NetworkName{BackendNetwork}, db.Networks)

	assert.Len(t, doc.ExternalVolumes, 8)
	assert.Equal(t, ExternalVolume{Prefix: ProxyService, Name: "certs"}, doc.ExternalVolumes[0])
	assert.Equal(t, ExternalVolume{Prefix: RedisService, Name: "data_redis"}, doc.ExternalVolumes[7])
	assert.Equal(t, []NetworkName{FrontendNetwork, BackendNetwork}, doc.NetworkNames())
}

func TestBuildComposeDocumentRejectsBadInput(t *testing.T) {
	groups := GlobalGroups(t.TempDir())

	in := testComposeInput()
	in.DBRootPassword = ""
	_, err := BuildComposeDocument(in, groups)
	assert.ErrorContains(t, err, "password")

	in = testComposeInput()
	delete(in.ImageVersions, imageRedis)
	_, err = BuildComposeDocument(in, groups)
	assert.ErrorContains(t, err, "easyengine/redis")

	in = testComposeInput()
	in.Ports = ProxyPorts{HTTP: 80, HTTPS: 80}
	_, err = BuildComposeDocument(in, groups)
	assert.Error(t, err)

	// Without the groups no mount is declared external.
	_, err = BuildComposeDocument(testComposeInput(), nil)
	assert.ErrorContains(t, err, "undeclared volume")
}

func TestComposeDocumentValidateNetworks(t *testing.T) {
	doc := ComposeDocument{Services: []ServiceDefinition{{Name: "x", Networks: []NetworkName{"bridge"}}}}
	assert.ErrorContains(t, doc.Validate(), "unknown network")
}

func TestVolumeMount(t *testing.T) {
	assert.True(t, VolumeMount{Source: "certs"}.Named())
	assert.False(t, VolumeMount{Source: "/var/run/docker.sock"}.Named())
	assert.False(t, VolumeMount{Source: "./data"}.Named())
	assert.Equal(t, "/a:/b:ro", VolumeMount{Source: "/a", Target: "/b", ReadOnly: true}.String())
}

func TestGeneratePassword(t *testing.T) {
	p, err := GeneratePassword(0)
	require.NoError(t, err)
	assert.Len(t, p, DefaultPasswordLength)
	for _, r := range p {
		assert.True(t, strings.ContainsRune(passwordChars, r), "unexpected rune %q", r)
	}

	q, err := GeneratePassword(32)
	require.NoError(t, err)
	assert.Len(t, q, 32)
	assert.NotEqual(t, p, q[:DefaultPasswordLength])
}

func TestRenderedComposeStructure(t *testing.T) {
	doc, err := BuildComposeDocument(testComposeInput(), GlobalGroups(t.TempDir()))
	require.NoError(t, err)
	out, err := newCountingRenderer().Render("global-docker-compose.yml", doc)
	require.NoError(t, err)

	var parsed struct {
		Services map[string]struct {
			ContainerName string   `yaml:"container_name"`
			Image         string   `yaml:"image"`
			Ports         []string `yaml:"ports"`
			Volumes       []string `yaml:"volumes"`
			Networks      []string `yaml:"networks"`
		} `yaml:"services"`
		Volumes map[string]struct {
			External bool   `yaml:"external"`
			Name     string `yaml:"name"`
		} `yaml:"volumes"`
		Networks map[string]struct {
			External bool `yaml:"external"`
		} `yaml:"networks"`
	}
	require.NoError(t, yaml.Unmarshal(out, &parsed))

	require.Len(t, parsed.Services, 3)
	proxy := parsed.Services[ProxyService]
	assert.Equal(t, ProxyContainer, proxy.ContainerName)
	assert.Equal(t, []string{"8080:80", "8443:443"}, proxy.Ports)
	assert.Contains(t, proxy.Volumes, "/var/run/docker.sock:/tmp/docker.sock:ro")

	assert.Equal(t, "global-db_data_db", parsed.Volumes["data_db"].Name)
	assert.True(t, parsed.Volumes["certs"].External)
	assert.True(t, parsed.Networks[string(FrontendNetwork)].External)
	assert.True(t, parsed.Networks[string(BackendNetwork)].External)
}

func TestValidateComposeFileAcceptsRenderedDocument(t *testing.T) {
	dir := t.TempDir()
	doc, err := BuildComposeDocument(testComposeInput(), GlobalGroups(dir))
	require.NoError(t, err)

	path := filepath.Join(dir, ComposeFileName)
	written, err := ComposeWriter{Renderer: newCountingRenderer(), Validate: ValidateComposeFile}.RenderAndWrite(context.Background(), doc, path)
	require.NoError(t, err)
	assert.True(t, written)
}

func TestValidateComposeFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docker-compose.yml")
	require.NoError(t, os.WriteFile(path, []byte("services:\n  web:\n    image: nginx\n    networks:\n      - missing\n"), 0o644))
	assert.Error(t, ValidateComposeFile(context.Background(), path))
}

func TestRenderAndWriteIsWriteOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "services", ComposeFileName)
	doc, err := BuildComposeDocument(testComposeInput(), GlobalGroups(dir))
	require.NoError(t, err)
	w := ComposeWriter{Renderer: newCountingRenderer()}

	written, err := w.RenderAndWrite(context.Background(), doc, path)
	require.NoError(t, err)
	require.True(t, written)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	in := testComposeInput()
	in.DBRootPassword = "another"
	other, err := BuildComposeDocument(in, GlobalGroups(dir))
	require.NoError(t, err)
	written, err = w.RenderAndWrite(context.Background(), other, path)
	require.NoError(t, err)
	assert.False(t, written)

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".docker-compose-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestRenderAndWriteValidationFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ComposeFileName)
	doc, err := BuildComposeDocument(testComposeInput(), GlobalGroups(dir))
	require.NoError(t, err)

	w := ComposeWriter{
		Renderer: newCountingRenderer(),
		Validate: func(context.Context, string) error { return errors.New("bad document") },
	}
	_, err = w.RenderAndWrite(context.Background(), doc, path)
	require.ErrorContains(t, err, "bad document")
	assert.NoFileExists(t, path)
}

func TestWriteProxyCustomConfOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nginx-proxy", "conf.d", "custom.conf")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, WriteProxyCustomConf(newCountingRenderer(), path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "stale")
	assert.Contains(t, string(content), "client_max_body_size 100m")
}

func TestRenderedComposeMountsKeepShortSyntax(t *testing.T) {
	dir := t.TempDir()
	doc, err := BuildComposeDocument(testComposeInput(), GlobalGroups(dir))
	require.NoError(t, err)

	path := filepath.Join(dir, ComposeFileName)
	written, err := ComposeWriter{Renderer: config.NewTemplateRenderer("")}.RenderAndWrite(context.Background(), doc, path)
	require.NoError(t, err)
	require.True(t, written)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, `- "/var/run/docker.sock:/tmp/docker.sock:ro"`)
	assert.Contains(t, out, `- "certs:/etc/nginx/certs"`)
	assert.Contains(t, out, `- "data_db:/var/lib/mysql"`)
	assert.NotContains(t, out, "{")
}
