package convert

import (
	"math"
	"testing"

	"github.com/banshee-data/navcore/internal/models"
)

var testLimits = [4]float32{0, 3000, 0, 2000}

func approx(t *testing.T, got, want float32, what string) {
	t.Helper()
	if math.Abs(float64(got-want)) > 1e-2 {
		t.Errorf("%s = %f, want %f", what, got, want)
	}
}

func TestTransformIdentityPose(t *testing.T) {
	c := &Converter{cfg: Config{}}
	pose := models.Pose{X: 500, Y: 500}

	rows := c.transform(pose, [][3]float32{{0, 1000, 42}}, testLimits)
	if len(rows) != 1 {
		t.Fatalf("kept %d rows, want 1", len(rows))
	}
	approx(t, rows[0][0], 1500, "x")
	approx(t, rows[0][1], 500, "y")
	if rows[0][2] != 42 {
		t.Errorf("intensity = %f, want 42", rows[0][2])
	}
}

func TestTransformRotatedPose(t *testing.T) {
	c := &Converter{cfg: Config{}}
	// Facing +Y: a point dead ahead of the sensor lands above the robot.
	pose := models.Pose{X: 500, Y: 500, Angle: 90}

	rows := c.transform(pose, [][3]float32{{0, 1000, 1}}, testLimits)
	if len(rows) != 1 {
		t.Fatalf("kept %d rows, want 1", len(rows))
	}
	approx(t, rows[0][0], 500, "x")
	approx(t, rows[0][1], 1500, "y")
}

func TestTransformSensorOffset(t *testing.T) {
	// Sensor mounted 100 mm ahead of the robot center.
	c := &Converter{cfg: Config{OffsetX: 100}}
	pose := models.Pose{X: 500, Y: 500, Angle: 90}

	rows := c.transform(pose, [][3]float32{{0, 1000, 1}}, testLimits)
	if len(rows) != 1 {
		t.Fatalf("kept %d rows, want 1", len(rows))
	}
	approx(t, rows[0][0], 500, "x")
	approx(t, rows[0][1], 1600, "y")
}

func TestTransformPointAtScanAngle(t *testing.T) {
	c := &Converter{cfg: Config{}}
	pose := models.Pose{X: 1000, Y: 1000}

	// 90° in the scan is +Y in the robot frame.
	rows := c.transform(pose, [][3]float32{{90, 500, 1}}, testLimits)
	if len(rows) != 1 {
		t.Fatalf("kept %d rows, want 1", len(rows))
	}
	approx(t, rows[0][0], 1000, "x")
	approx(t, rows[0][1], 1500, "y")
}

func TestTransformDropsOutOfBounds(t *testing.T) {
	c := &Converter{cfg: Config{TableMargin: 20}}
	pose := models.Pose{X: 1500, Y: 1000}

	scan := [][3]float32{
		{0, 1479, 1}, // x = 2979, just inside the 2980 margin line
		{0, 1481, 1}, // x = 2981, outside
		{0, 2000, 1}, // x = 3500, past the table entirely
	}
	rows := c.transform(pose, scan, testLimits)
	if len(rows) != 1 {
		t.Fatalf("kept %d rows, want 1", len(rows))
	}
	approx(t, rows[0][0], 2979, "x")
}

func TestTransformNegativeMarginGrowsBounds(t *testing.T) {
	pose := models.Pose{X: 1500, Y: 1000}
	scan := [][3]float32{{0, 1550, 1}} // x = 3050, beyond the table edge

	strict := &Converter{cfg: Config{}}
	if rows := strict.transform(pose, scan, testLimits); len(rows) != 0 {
		t.Fatalf("zero margin kept %d rows, want 0", len(rows))
	}

	loose := &Converter{cfg: Config{TableMargin: -100}}
	if rows := loose.transform(pose, scan, testLimits); len(rows) != 1 {
		t.Fatalf("negative margin kept %d rows, want 1", len(rows))
	}
}
