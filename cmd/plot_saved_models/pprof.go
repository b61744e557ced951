package main

import "runtime/pprof"
import "os"
import "os/signal"
import "syscall"

// With -pgo a CPU profile is collected into default.pgo until the process is interrupted.
func init() {
	for _, arg := range os.Args {
		if arg == "-pgo" || arg == "--pgo" {
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			f, err := os.Create("default.pgo")
			if err != nil {
				println(err.Error())
				return
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				println(err.Error())
				f.Close()
				return
			}
			go func() {
				<-sigChan
				pprof.StopCPUProfile()
				f.Close()
				os.Exit(130)
			}()
			return
		}
	}
}
