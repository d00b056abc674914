// tcp-monitor tails the danmu moderation feed: every caption posted to
// any video, one event per line.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"vidhub/pkg/models"
)

func main() {
	addr := "127.0.0.1:9090"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	fmt.Println("Connected to danmu feed:", addr)
	fmt.Println("Waiting for danmu...")

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		var evt models.DanmuEvent
		if err := json.Unmarshal(sc.Bytes(), &evt); err != nil {
			// Not one of ours; show it raw.
			fmt.Println(sc.Text())
			continue
		}
		at := time.UnixMilli(evt.Time).Format("15:04:05")
		fmt.Printf("%s  video=%s  %s: %s\n", at, evt.VideoID, evt.Author, evt.Text)
	}
	fmt.Println("Disconnected.")
}
