package render_test

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/fattura-processor/internal/fixtures"
	"github.com/rezonia/fattura-processor/internal/model"
	"github.com/rezonia/fattura-processor/internal/render"
	"github.com/rezonia/fattura-processor/internal/resource"
)

func TestInjectPrintStyle(t *testing.T) {
	out, err := render.InjectPrintStyle(`<html><head><title>Fattura</title></head><body><h1>123</h1></body></html>`)
	require.NoError(t, err)

	head := out[strings.Index(out, "<head>"):strings.Index(out, "</head>")]
	assert.Contains(t, head, "<title>Fattura</title>")
	assert.Contains(t, head, "@page { size: A4; margin: 15mm; }")
	assert.Contains(t, out, "<h1>123</h1>")
}

func TestInjectPrintStyle_Fragment(t *testing.T) {
	out, err := render.InjectPrintStyle(`<p>solo corpo</p>`)
	require.NoError(t, err)
	assert.Contains(t, out, "<head><style media=\"print\">")
	assert.Contains(t, out, "<p>solo corpo</p>")
}

func TestCheckPDF_Rejects(t *testing.T) {
	_, err := render.CheckPDF([]byte("<html/>"))
	require.Error(t, err)

	_, err = render.CheckPDF([]byte("%PDF-1.7\ngarbage"))
	require.Error(t, err)
}

func TestXSLTProc_Unavailable(t *testing.T) {
	x := render.NewXSLTProc("xsltproc-does-not-exist", time.Second, nil)
	assert.False(t, x.IsAvailable())

	_, err := x.Transform(context.Background(), fixtures.Ordinaria(), "<xsl/>")
	require.ErrorIs(t, err, model.ErrTransformationFailed)
}

func TestChrome_Unavailable(t *testing.T) {
	c := render.NewChrome("chromium-does-not-exist", time.Second, zerolog.Nop(), nil)
	assert.False(t, c.IsAvailable())

	_, err := c.Print(context.Background(), "<html/>")
	require.ErrorIs(t, err, model.ErrTransformationFailed)
}

func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not installed", name)
	}
}

func TestXSLTProc_Transform(t *testing.T) {
	requireTool(t, "xsltproc")

	ctx := context.Background()
	store := resource.NewFSStore(fixtures.Resources())
	x := render.NewXSLTProc("", 10*time.Second, nil)

	xsl, err := resource.ForSubType(ctx, store, resource.KindStylesheet, model.Ordinaria)
	require.NoError(t, err)

	out, err := x.Transform(ctx, fixtures.Ordinaria(), xsl)
	require.NoError(t, err)
	assert.Contains(t, out, "Fattura ordinaria 123")
	assert.Contains(t, out, "2014-12-18")
}

func TestXSLTProc_EmptyResult(t *testing.T) {
	requireTool(t, "xsltproc")

	empty := `<?xml version="1.0"?>
<xsl:stylesheet version="1.0" xmlns:xsl="http://www.w3.org/1999/XSL/Transform">
  <xsl:output method="text"/>
  <xsl:template match="/"/>
</xsl:stylesheet>`

	_, err := render.NewXSLTProc("", 10*time.Second, nil).Transform(context.Background(), fixtures.Ordinaria(), empty)
	require.ErrorIs(t, err, model.ErrTransformationFailed)
}

func TestXSLTProc_BrokenStylesheet(t *testing.T) {
	requireTool(t, "xsltproc")

	_, err := render.NewXSLTProc("", 10*time.Second, nil).Transform(context.Background(), fixtures.Ordinaria(), "<not-xslt")
	require.ErrorIs(t, err, model.ErrTransformationFailed)
}
