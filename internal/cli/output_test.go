package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOutput(jsonMode bool) (*Output, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Output{writer: &buf, jsonMode: jsonMode, colorEnabled: false}, &buf
}

func TestOutputJSON(t *testing.T) {
	output, buf := newTestOutput(true)
	assert.True(t, output.IsJSON())

	require.NoError(t, output.JSON(map[string]int{"synced": 3}))

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 3, decoded["synced"])
}

func TestOutputPlainTextWithoutColor(t *testing.T) {
	output, buf := newTestOutput(false)

	output.Success("synced %d", 5)
	output.Error("failed %s", "AAPL")
	output.Printf("%-8s\n", "MSFT")

	text := buf.String()
	assert.Contains(t, text, "synced 5")
	assert.Contains(t, text, "failed AAPL")
	assert.NotContains(t, text, "\033[")
}

func TestOutputColorStrings(t *testing.T) {
	colored := &Output{writer: &bytes.Buffer{}, colorEnabled: true}
	assert.Equal(t, ColorGreen+"up"+ColorReset, colored.Green("up"))
	assert.Equal(t, ColorRed+"down"+ColorReset, colored.Red("down"))

	plain := &Output{writer: &bytes.Buffer{}, colorEnabled: false}
	assert.Equal(t, "up", plain.Green("up"))
	assert.Equal(t, "[ENTRY_READY]", plain.StageTag("ENTRY_READY"))
}

func TestOutputSigned(t *testing.T) {
	colored := &Output{writer: &bytes.Buffer{}, colorEnabled: true}
	assert.Equal(t, ColorGreen+"+5.00%"+ColorReset, colored.Signed(5, "+5.00%"))
	assert.Equal(t, ColorRed+"-5.00%"+ColorReset, colored.Signed(-5, "-5.00%"))
	assert.Equal(t, "0.00%", colored.Signed(0, "0.00%"))
}
