package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/navcore/internal/avoidance"
	"github.com/banshee-data/navcore/internal/config"
	"github.com/banshee-data/navcore/internal/convert"
	"github.com/banshee-data/navcore/internal/lidar"
	"github.com/banshee-data/navcore/internal/models"
	"github.com/banshee-data/navcore/internal/navdb"
	"github.com/banshee-data/navcore/internal/serialmux"
	"github.com/banshee-data/navcore/internal/shm"
	"github.com/banshee-data/navcore/internal/version"
)

var (
	device      = flag.String("device", "/dev/ttyUSB0", "Serial device of the lidar")
	model       = flag.String("model", "ld19", "Lidar model: ld19 or g2")
	shmName     = flag.String("shm-name", "navcore", "Name of the shared memory region")
	owner       = flag.Bool("owner", true, "Create and initialize the shared region (exactly one process)")
	dbFile      = flag.String("db", "navcore.db", "Path of the recorder database")
	configPath  = flag.String("config", "", "Optional JSON tuning file")
	devMode     = flag.Bool("dev", false, "Replay fixture bytes instead of opening a serial device")
	fixtureFile = flag.String("fixtures", "fixtures.bin", "Raw byte capture replayed in dev mode")
	tableWidth  = flag.Float64("table-width", 3000, "Table extent along x in mm (owner only)")
	tableHeight = flag.Float64("table-height", 2000, "Table extent along y in mm (owner only)")
	planEvery   = flag.Duration("plan-interval", 200*time.Millisecond, "Replanning check cadence")
)

// recordingSink forwards completed scans to the shared region and logs
// them to the recorder database.
type recordingSink struct {
	inner   *lidar.RegionSink
	db      *navdb.NavDB
	session string
}

func (s *recordingSink) PublishScan(rows [][3]float32) {
	s.inner.PublishScan(rows)
	if err := s.db.RecordScan(s.session, time.Now().UnixNano(), len(rows), 0); err != nil {
		log.Printf("failed to record scan: %v", err)
	}
}

func openPort(mode *serialmux.SerialPortMode) (serialmux.TimeoutSerialPorter, error) {
	if *devMode {
		data, err := os.ReadFile(*fixtureFile)
		if err != nil {
			return nil, err
		}
		port := serialmux.NewTestablePort()
		port.QueueRead(data)
		return port, nil
	}
	return serialmux.Open(*device, mode)
}

// Main
func main() {
	flag.Parse()
	log.Println(version.String())

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	region, err := shm.OpenRegion(*shmName, *owner)
	if err != nil {
		log.Fatalf("failed to open shared region: %v", err)
	}
	defer region.Close()

	if *owner {
		region.Data().TableLimits = [4]float32{0, float32(*tableWidth), 0, float32(*tableHeight)}
	}

	db, err := navdb.NewNavDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open recorder database: %v", err)
	}
	defer db.Close()

	session, err := db.StartSession(*model, *device, "")
	if err != nil {
		log.Fatalf("failed to start session: %v", err)
	}
	defer db.EndSession(session)

	var (
		proto    lidar.Protocol
		asmBase  lidar.AssemblerConfig
		drvBase  lidar.DriverConfig
		portMode *serialmux.SerialPortMode
	)
	switch *model {
	case "ld19":
		proto = lidar.NewLD19Protocol()
		asmBase = lidar.DefaultAssemblerConfig()
		drvBase = lidar.DefaultLD19DriverConfig()
		portMode = serialmux.DefaultLD19Mode()
	case "g2":
		proto = lidar.NewG2Protocol()
		asmBase = lidar.DefaultAssemblerConfig()
		asmBase.Policy = lidar.PolicyBucketAverage
		drvBase = lidar.DefaultG2DriverConfig()
		portMode = serialmux.DefaultG2Mode()
	default:
		log.Fatalf("unknown lidar model %q", *model)
	}

	port, err := openPort(portMode)
	if err != nil {
		log.Fatalf("failed to open serial port: %v", err)
	}

	sink := &recordingSink{inner: lidar.NewRegionSink(region), db: db, session: session}
	asm := lidar.NewAssembler(cfg.AssemblerConfig(asmBase), sink)
	driver := lidar.NewDriver(*model, port, proto, asm, cfg.DriverConfig(drvBase))
	if err := driver.Start(); err != nil {
		log.Fatalf("failed to start lidar driver: %v", err)
	}
	defer driver.Stop()

	converter := convert.New(region, cfg.ConverterConfig())
	converter.Start()
	defer converter.Stop()

	borders := []models.Coords{
		{X: 0, Y: 0},
		{X: *tableWidth, Y: 0},
		{X: *tableWidth, Y: *tableHeight},
		{X: 0, Y: *tableHeight},
	}
	planner, err := avoidance.NewPlanner(borders)
	if err != nil {
		log.Fatalf("failed to build planner: %v", err)
	}
	bridge := avoidance.NewRegionBridge(region, planner)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the replanning loop: refresh obstacles, recompute when the
	// current straight line to the target is blocked or no path exists.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(*planEvery)
		defer ticker.Stop()
		havePath := false
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			data := region.Data()

			poseLock := region.Lock(shm.LockPoseCurrent)
			poseLock.StartReading()
			current := region.PoseBuffer().Latest()
			poseLock.FinishReading()

			orderLock := region.Lock(shm.LockPoseOrder)
			orderLock.StartReading()
			target := data.PoseOrder.Pose()
			orderLock.FinishReading()

			if current.Coords().Equal(target.Coords()) {
				continue
			}

			bridge.SyncObstacles()
			if havePath && !planner.CheckRecompute(current.Coords(), target.Coords()) {
				continue
			}

			ok := planner.Avoidance(current, target)
			bridge.SetBlocked(!ok)
			if !ok {
				havePath = false
				continue
			}
			havePath = true
			bridge.PublishPath()
			if err := db.RecordPath(session, time.Now().UnixNano(), bridge.ReadPath()); err != nil {
				log.Printf("failed to record path: %v", err)
			}
		}
	}()

	log.Printf("navcore running: model=%s device=%s region=%s", *model, *device, *shmName)
	<-ctx.Done()
	wg.Wait()
}
