package shm

import (
	"testing"

	"github.com/banshee-data/navcore/internal/models"
)

func TestOpenRegionOwnerInitializes(t *testing.T) {
	useTempDir(t)

	r, err := OpenRegion("region_init", true)
	if err != nil {
		t.Fatalf("OpenRegion: %v", err)
	}
	defer r.Close()

	if rows := ReadRows(&r.Data().LidarData); len(rows) != 0 {
		t.Errorf("fresh scan buffer holds %d rows, want 0", len(rows))
	}
	if rows := ReadRows(&r.Data().LidarCoords); len(rows) != 0 {
		t.Errorf("fresh coords buffer holds %d rows, want 0", len(rows))
	}
	if r.PoseBuffer().Size() != 0 {
		t.Errorf("fresh pose buffer size = %d, want 0", r.PoseBuffer().Size())
	}
}

func TestRegionNonOwnerSharesData(t *testing.T) {
	useTempDir(t)

	owner, err := OpenRegion("region_shared", true)
	if err != nil {
		t.Fatalf("OpenRegion(owner): %v", err)
	}
	defer owner.Close()

	attached, err := OpenRegion("region_shared", false)
	if err != nil {
		t.Fatalf("OpenRegion(non-owner): %v", err)
	}
	defer attached.Close()

	owner.PoseBuffer().Push(models.Pose{X: 123, Y: 456, Angle: 90})
	got := attached.PoseBuffer().Latest()
	if got.X != 123 || got.Y != 456 || got.Angle != 90 {
		t.Errorf("pose through second mapping = %+v", got)
	}

	WriteRows(&owner.Data().LidarData, [][3]float32{{10, 20, 30}})
	rows := ReadRows(&attached.Data().LidarData)
	if len(rows) != 1 || rows[0] != [3]float32{10, 20, 30} {
		t.Errorf("rows through second mapping = %v", rows)
	}
}

func TestOpenRegionNonOwnerWithoutOwner(t *testing.T) {
	useTempDir(t)
	if _, err := OpenRegion("region_missing", false); err == nil {
		t.Fatal("non-owner open of a missing region should fail")
	}
}

func TestWriteRowsSentinel(t *testing.T) {
	useTempDir(t)

	var buf [MaxLidarPoints][3]float32
	rows := [][3]float32{{1, 2, 3}, {4, 5, 6}}
	if n := WriteRows(&buf, rows); n != 2 {
		t.Fatalf("WriteRows = %d, want 2", n)
	}
	if buf[2][0] != -1 {
		t.Error("sentinel row missing after written rows")
	}
	got := ReadRows(&buf)
	if len(got) != 2 || got[1] != [3]float32{4, 5, 6} {
		t.Errorf("ReadRows = %v", got)
	}
}

func TestWriteRowsTruncatesAtCapacity(t *testing.T) {
	useTempDir(t)

	var buf [MaxLidarPoints][3]float32
	rows := make([][3]float32, MaxLidarPoints+100)
	for i := range rows {
		rows[i] = [3]float32{float32(i), 0, 0}
	}

	n := WriteRows(&buf, rows)
	if n != MaxLidarPoints-1 {
		t.Fatalf("WriteRows = %d, want %d", n, MaxLidarPoints-1)
	}
	if buf[MaxLidarPoints-1][0] != -1 {
		t.Error("sentinel must occupy the final row when the buffer is full")
	}
	if got := ReadRows(&buf); len(got) != MaxLidarPoints-1 {
		t.Errorf("ReadRows length = %d, want %d", len(got), MaxLidarPoints-1)
	}
}
