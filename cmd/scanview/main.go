// Command scanview attaches to an existing shared region and tails the
// world-frame scan buffer, printing each publication as it lands.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/navcore/internal/shm"
	"github.com/banshee-data/navcore/internal/version"
)

var (
	shmName = flag.String("shm-name", "navcore", "Name of the shared memory region")
	raw     = flag.Bool("raw", false, "Tail the polar scan buffer instead of world coordinates")
	count   = flag.Int("n", 0, "Exit after this many scans (0 = run until interrupted)")
)

func main() {
	flag.Parse()
	log.Println(version.String())

	region, err := shm.OpenRegion(*shmName, false)
	if err != nil {
		log.Fatalf("failed to attach to shared region: %v", err)
	}
	defer region.Close()

	lockName := shm.LockLidarCoords
	if *raw {
		lockName = shm.LockLidarData
	}
	lock := region.Lock(lockName)
	lock.RegisterConsumer()

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	seen := 0
	for {
		select {
		case <-done:
			return
		default:
		}
		if !lock.WaitUpdateTimeout(500 * time.Millisecond) {
			continue
		}

		lock.StartReading()
		var rows [][3]float32
		if *raw {
			rows = shm.ReadRows(&region.Data().LidarData)
		} else {
			rows = shm.ReadRows(&region.Data().LidarCoords)
		}
		lock.FinishReading()

		fmt.Printf("scan %d: %d points\n", seen, len(rows))
		for _, row := range rows {
			fmt.Printf("  %8.1f %8.1f %6.1f\n", row[0], row[1], row[2])
		}

		seen++
		if *count > 0 && seen >= *count {
			return
		}
	}
}
