// internal/batch/dataset_test.go
package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleCSV = `ID,Starting URL,Category,Difficulty,Task
1,https://shop.example.com,READ,easy,Find the returns policy
2,https://shop.example.com,CREATE,hard,"Buy wool socks, size 42"
3,https://news.example.org,READ,hard,Find yesterday's headline
4,https://news.example.org,UPDATE,medium,Change the displayed region
`

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDataset(t *testing.T) {
	t.Run("filters by difficulty", func(t *testing.T) {
		path := writeDataset(t, sampleCSV)

		tasks, err := LoadDataset(path, "hard", zap.NewNop())
		require.NoError(t, err)
		require.Len(t, tasks, 2)

		assert.Equal(t, "2", tasks[0].ID)
		assert.Equal(t, "https://shop.example.com", tasks[0].StartingURL)
		assert.Equal(t, "CREATE", tasks[0].Category)
		assert.Equal(t, "Buy wool socks, size 42", tasks[0].Description)
		assert.Equal(t, "3", tasks[1].ID)
	})

	t.Run("empty filter keeps all rows", func(t *testing.T) {
		path := writeDataset(t, sampleCSV)

		tasks, err := LoadDataset(path, "", zap.NewNop())
		require.NoError(t, err)
		assert.Len(t, tasks, 4)
	})

	t.Run("difficulty match is case insensitive", func(t *testing.T) {
		path := writeDataset(t, sampleCSV)

		tasks, err := LoadDataset(path, "HARD", zap.NewNop())
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
	})

	t.Run("missing required column", func(t *testing.T) {
		path := writeDataset(t, "ID,Category,Task\n1,READ,Find something\n")

		_, err := LoadDataset(path, "hard", zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Starting URL")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadDataset(filepath.Join(t.TempDir(), "absent.csv"), "hard", zap.NewNop())
		require.Error(t, err)
	})

	t.Run("no matching rows", func(t *testing.T) {
		path := writeDataset(t, sampleCSV)

		tasks, err := LoadDataset(path, "impossible", zap.NewNop())
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})
}
