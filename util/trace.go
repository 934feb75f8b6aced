package util

import (
	"log"
	"time"
)

// Trace 记录耗时，用法：defer util.Trace("compose outfit")()
func Trace(msg string) func() {
	start := time.Now()
	log.Printf("enter %s", msg)
	return func() {
		log.Printf("exit %s (%s)", msg, time.Since(start))
	}
}
