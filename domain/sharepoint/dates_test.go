package sharepoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeLastModifiedToEpochMillis(t *testing.T) {
	ms, err := TimeLastModifiedToEpochMillis("2024-01-18T14:41:46Z")
	require.NoError(t, err)
	assert.Equal(t, int64(1705588906000), ms)

	ms, err = TimeLastModifiedToEpochMillis("")
	require.NoError(t, err)
	assert.Zero(t, ms)

	_, err = TimeLastModifiedToEpochMillis("yesterday")
	assert.Error(t, err)
}

func TestDSSToSharePointDate(t *testing.T) {
	assert.Equal(t, "2024-03-05 08:09:10", DSSToSharePointDate("2024-03-05T08:09:10.000Z"))
	assert.Equal(t, "2024-03-05 08:09:10", DSSToSharePointDate("2024-03-05T08:09:10Z"))
	assert.Equal(t, "", DSSToSharePointDate(""))
	assert.Equal(t, "not a date", DSSToSharePointDate("not a date"))
}

func TestSharePointToDSSDate(t *testing.T) {
	assert.Equal(t, "2024-03-05T00:00:00.000Z", SharePointToDSSDate("03/05/2024"))
	assert.Equal(t, "2024-03-05T14:30:00.000Z", SharePointToDSSDate("03/05/2024 02:30 PM"))
	assert.Equal(t, "garbage", SharePointToDSSDate("garbage"))
}

func TestFile_LastModifiedMillis(t *testing.T) {
	f := File{TimeLastModified: "1970-01-01T00:00:02Z"}
	assert.Equal(t, int64(2000), f.LastModifiedMillis())

	bad := Folder{TimeLastModified: "??"}
	assert.Zero(t, bad.LastModifiedMillis())
}
