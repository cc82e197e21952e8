package main

import (
	"chat-relay/runtime"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "Relay base URL (debug routes must be enabled)")
	kind := flag.String("kind", "", "Only show rooms of this kind: personal or chat")
	flag.Parse()

	rooms, err := fetchRooms(*addr)
	if err != nil {
		log.Fatal("Error while fetching rooms: ", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Room", "Kind", "Key", "Members", "Sessions"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	count := 0
	for _, room := range rooms {
		if *kind != "" && room.Kind != *kind {
			continue
		}
		table.Append([]string{
			room.Room,
			room.Kind,
			room.Key,
			fmt.Sprintf("%d", len(room.Sessions)),
			strings.Join(room.Sessions, ","),
		})
		count++
	}
	table.Render()
	fmt.Printf("\n%d room(s)\n", count)
}

func fetchRooms(addr string) ([]runtime.RoomView, error) {
	httpClient := &http.Client{Timeout: 5 * time.Second}
	resp, err := httpClient.Get(strings.TrimRight(addr, "/") + "/debug/rooms")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var rooms []runtime.RoomView
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}
