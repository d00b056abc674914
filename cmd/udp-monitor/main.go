// udp-monitor subscribes to catalog notifications and prints each new
// video as it is announced.
package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"vidhub/pkg/models"
)

func main() {
	server := "127.0.0.1:7070"
	if len(os.Args) > 1 {
		server = os.Args[1]
	}

	serverAddr, err := net.ResolveUDPAddr("udp", server)
	if err != nil {
		panic(err)
	}

	// Bind a random local port so SUBSCRIBE and the notifications share
	// one socket.
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	if _, err := conn.WriteToUDP([]byte("SUBSCRIBE"), serverAddr); err != nil {
		panic(err)
	}

	fmt.Println("Subscribed to catalog notifications:", server)
	fmt.Println("Local addr:", conn.LocalAddr().String())
	fmt.Println("Waiting for notifications...")

	buf := make([]byte, 4096)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			fmt.Println("read error:", err)
			continue
		}

		var noti models.Notification
		if err := json.Unmarshal(buf[:n], &noti); err != nil {
			fmt.Printf("FROM %s: %s\n", from.String(), string(buf[:n]))
			continue
		}
		at := time.Unix(noti.Timestamp, 0).Format("15:04:05")
		fmt.Printf("%s  [%s] %s\n", at, noti.Type, noti.Message)
	}
}
