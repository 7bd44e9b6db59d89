package providers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func writePredictionsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "predictions.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPredictionsProvider_Load(t *testing.T) {
	path := writePredictionsFile(t, strings.Join([]string{
		"player_id,web_name,team,element_type,now_cost,predicted_pts",
		"427,M.Salah,13,3,131,8.92",
		"233,Haaland,14,4,150,8.61",
		"1,Raya,1,1,56,4.20",
	}, "\n"))

	provider := NewPredictionsProvider(path, testLogger())
	predictions, err := provider.Load()

	require.NoError(t, err)
	require.Len(t, predictions, 3)

	assert.Equal(t, 427, predictions[0].ElementID)
	assert.Equal(t, "M.Salah", predictions[0].Name)
	assert.Equal(t, uint(13), predictions[0].ClubID)
	assert.Equal(t, 3, predictions[0].ElementType)
	assert.Equal(t, 131, predictions[0].Cost)
	assert.Equal(t, 8.92, predictions[0].PredictedPoints)

	assert.Equal(t, "Haaland", predictions[1].Name)
	assert.Equal(t, "Raya", predictions[2].Name)
}

func TestPredictionsProvider_HeaderIsCaseInsensitive(t *testing.T) {
	path := writePredictionsFile(t, strings.Join([]string{
		"Player_ID, Web_Name, Team, Element_Type, Now_Cost, Predicted_Pts",
		"427, M.Salah, 13, 3, 131, 8.92",
	}, "\n"))

	provider := NewPredictionsProvider(path, testLogger())
	predictions, err := provider.Load()

	require.NoError(t, err)
	require.Len(t, predictions, 1)
	assert.Equal(t, "M.Salah", predictions[0].Name)
	assert.Equal(t, 131, predictions[0].Cost)
}

func TestPredictionsProvider_MissingColumn(t *testing.T) {
	path := writePredictionsFile(t, strings.Join([]string{
		"player_id,web_name,team,element_type,now_cost",
		"427,M.Salah,13,3,131",
	}, "\n"))

	provider := NewPredictionsProvider(path, testLogger())
	_, err := provider.Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "predicted_pts"`)
}

func TestPredictionsProvider_SkipsMalformedRows(t *testing.T) {
	path := writePredictionsFile(t, strings.Join([]string{
		"player_id,web_name,team,element_type,now_cost,predicted_pts",
		"427,M.Salah,13,3,131,8.92",
		"not-a-number,Broken,13,3,131,8.92",
		"428,NoPoints,13,3,131,not-a-float",
		"429,BadClub,zz,3,131,4.10",
		"233,Haaland,14,4,150,8.61",
	}, "\n"))

	provider := NewPredictionsProvider(path, testLogger())
	predictions, err := provider.Load()

	require.NoError(t, err)
	require.Len(t, predictions, 2)
	assert.Equal(t, 427, predictions[0].ElementID)
	assert.Equal(t, 233, predictions[1].ElementID)
}

func TestPredictionsProvider_ExtraColumnsIgnored(t *testing.T) {
	path := writePredictionsFile(t, strings.Join([]string{
		"player_id,web_name,team,element_type,now_cost,predicted_pts,xg,xa",
		"427,M.Salah,13,3,131,8.92,0.71,0.33",
	}, "\n"))

	provider := NewPredictionsProvider(path, testLogger())
	predictions, err := provider.Load()

	require.NoError(t, err)
	require.Len(t, predictions, 1)
	assert.Equal(t, 8.92, predictions[0].PredictedPoints)
}

func TestPredictionsProvider_LoadMapKeepsLastDuplicate(t *testing.T) {
	path := writePredictionsFile(t, strings.Join([]string{
		"player_id,web_name,team,element_type,now_cost,predicted_pts",
		"427,M.Salah,13,3,131,7.00",
		"427,M.Salah,13,3,131,8.92",
	}, "\n"))

	provider := NewPredictionsProvider(path, testLogger())
	byID, err := provider.LoadMap()

	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, 8.92, byID[427].PredictedPoints)
}

func TestPredictionsProvider_FileMissing(t *testing.T) {
	provider := NewPredictionsProvider(filepath.Join(t.TempDir(), "absent.csv"), testLogger())
	_, err := provider.Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open predictions file")
}
