// Command relayclient exercises the /ws relay: it sends a ping and a
// recognition message and prints what comes back.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	ws "github.com/satriahrh/voxchat/internal/websocket"
)

func main() {
	addr := flag.String("addr", "localhost:8000", "server host:port")
	text := flag.String("text", "你好，世界", "recognition text to relay")
	clientID := flag.String("client", "relay-client", "client id used when requesting a token")
	apiKey := flag.String("api-key", "", "AUTH_API_KEY of the server; empty when auth is disabled")
	flag.Parse()

	header := http.Header{}
	if *apiKey != "" {
		token, err := requestToken(*addr, *clientID, *apiKey)
		if err != nil {
			log.Fatalf("Failed to obtain token: %v", err)
		}
		header.Set("Authorization", "Bearer "+token)
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	fmt.Printf("Connecting to %s\n", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatalf("WebSocket connection failed: %v", err)
	}
	defer c.Close()

	fmt.Println("WebSocket connected")

	exchange(c, ws.Message{Type: ws.MessageTypePing})
	exchange(c, ws.Message{Type: ws.MessageTypeRecognition, Content: *text})

	c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func exchange(c *websocket.Conn, msg ws.Message) {
	msg.Timestamp = time.Now().Format(time.RFC3339)
	if err := c.WriteJSON(msg); err != nil {
		log.Fatalf("Failed to send %s: %v", msg.Type, err)
	}
	fmt.Printf("-> %s %q\n", msg.Type, msg.Content)

	c.SetReadDeadline(time.Now().Add(10 * time.Second))
	var reply map[string]interface{}
	if err := c.ReadJSON(&reply); err != nil {
		log.Fatalf("Failed to read reply to %s: %v", msg.Type, err)
	}
	fmt.Printf("<- %v %v\n", reply["type"], reply["content"])
}

func requestToken(addr, clientID, apiKey string) (string, error) {
	body, _ := json.Marshal(map[string]string{"client_id": clientID, "api_key": apiKey})
	resp, err := http.Post("http://"+addr+"/api/auth/token", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed with status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Token, nil
}
