package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/municipal-portal/config"
	domainauth "github.com/target/municipal-portal/internal/domain/auth"
	"github.com/target/municipal-portal/internal/domain/roads"
)

func testContext(out io.Writer) *commandContext {
	return &commandContext{
		Ctx:    context.Background(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: config.AppConfig{
			Dataset: config.DatasetConfig{WarmUsername: "robo", WarmPassword: "segredo"},
		},
		Out: out,
	}
}

func TestPrintUsageListsCommandsSorted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))

	out := buf.String()
	check := strings.Index(out, "check-backend")
	dataset := strings.Index(out, "dataset-summary")
	revoke := strings.Index(out, "revoke-session")
	assert.True(t, check > 0 && check < dataset && dataset < revoke, out)
}

func TestParseDatasetSummaryFlags(t *testing.T) {
	cmdCtx := testContext(io.Discard)

	opts, err := parseDatasetSummaryFlags(cmdCtx, nil)
	require.NoError(t, err)
	assert.Equal(t, "robo", opts.Username, "defaults to the warmer account")
	assert.Equal(t, "municipio", opts.By)
	assert.Equal(t, 20, opts.Top)

	opts, err = parseDatasetSummaryFlags(cmdCtx, []string{"-by", "estado", "-top", "0", "-username", "ana"})
	require.NoError(t, err)
	assert.Equal(t, "estado", opts.By)
	assert.Equal(t, "ana", opts.Username)

	_, err = parseDatasetSummaryFlags(cmdCtx, []string{"-by", "prefeito"})
	assert.Error(t, err)

	_, err = parseDatasetSummaryFlags(cmdCtx, []string{"-top", "-1"})
	assert.Error(t, err)

	cmdCtx.Config.Dataset = config.DatasetConfig{}
	_, err = parseDatasetSummaryFlags(cmdCtx, nil)
	assert.Error(t, err, "credentials are required")
}

func TestGroupRecords(t *testing.T) {
	records := []roads.Record{
		{Municipio: "Curitiba", Estado: "PR", Valor: 100},
		{Municipio: "Londrina", Estado: "PR", Valor: 300},
		{Municipio: "Curitiba", Estado: "PR", Valor: 250},
		{Municipio: "Campinas", Estado: "", Valor: 50},
	}

	byMunicipio := groupRecords(records, "municipio")
	require.Len(t, byMunicipio, 3)
	assert.Equal(t, datasetGroup{Key: "Curitiba", Count: 2, Total: 350}, byMunicipio[0])
	assert.Equal(t, "Londrina", byMunicipio[1].Key)
	assert.Equal(t, "Campinas", byMunicipio[2].Key)

	byEstado := groupRecords(records, "estado")
	require.Len(t, byEstado, 2)
	assert.Equal(t, datasetGroup{Key: "PR", Count: 3, Total: 650}, byEstado[0])
	assert.Equal(t, roads.UnknownMunicipio, byEstado[1].Key)
}

func TestWriteDatasetSummary(t *testing.T) {
	records := []roads.Record{
		{Municipio: "Curitiba", Valor: 1500000},
		{Municipio: "Londrina", Valor: 250000},
		{Municipio: "Maringá", Valor: 80000},
	}
	var buf bytes.Buffer
	err := writeDatasetSummary(&buf, records, datasetSummaryOptions{By: "municipio", Top: 2})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Registros: 3")
	assert.Contains(t, out, "R$ 1.830.000,00")
	assert.Contains(t, out, "MUNICIPIO")
	assert.Contains(t, out, "R$ 1.500.000,00")
	assert.Contains(t, out, "Londrina")
	assert.NotContains(t, out, "Maringá", "limited to the top two")
}

func TestWriteIdentity(t *testing.T) {
	var buf bytes.Buffer
	id := domainauth.Identity{Username: "ana", Email: "ana@example.com", Role: domainauth.RoleAdmin, Active: true}
	require.NoError(t, writeIdentity(&buf, "http://backend", id, 1500*time.Microsecond))

	out := buf.String()
	assert.Contains(t, out, "http://backend")
	assert.Contains(t, out, "ana@example.com")
	assert.Contains(t, out, "admin")
	assert.Contains(t, out, "2ms")
}

func TestParseRevokeFlags(t *testing.T) {
	opts, err := parseRevokeFlags([]string{"-id", " a , ,b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, opts.IDs)

	_, err = parseRevokeFlags(nil)
	assert.Error(t, err)
}

func TestRevokeSessionNeedsRedisStore(t *testing.T) {
	cmdCtx := testContext(io.Discard)
	cmdCtx.Config.Session.Store = config.SessionStoreMemory

	err := runRevokeSession(cmdCtx, []string{"-id", "abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_STORE=redis")
}
