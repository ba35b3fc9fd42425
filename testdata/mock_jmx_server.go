// mock_jmx_server stands in for the JMX MCP server in integration tests.
// It speaks newline-delimited JSON-RPC on stdin/stdout and mirrors the real
// server's surface: the six JMX tools, jmx:// resources, and listDomains.
//
// Behavior switches (environment):
//
//	MOCK_OMIT_TOOL      drop the named tool from tools/list
//	MOCK_NO_RESOURCES   return an empty resources/list
//	MOCK_EMPTY_CONTENT  return tools/call results with no content
//	MOCK_EXIT_EARLY     print a startup error to stderr and exit 1
//	MOCK_HANG_ON_TERM   ignore SIGTERM (exercises the forced-kill path)
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

type message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

var toolNames = []string{
	"listMBeans",
	"getMBeanInfo",
	"getAttribute",
	"setAttribute",
	"listDomains",
	"getConnectionInfo",
}

func main() {
	if os.Getenv("MOCK_EXIT_EARLY") != "" {
		fmt.Fprintln(os.Stderr, "Error: Failed to start embedded JMX connector")
		os.Exit(1)
	}

	if os.Getenv("MOCK_HANG_ON_TERM") != "" {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM)
		go func() {
			for range ch {
				// swallow
			}
		}()
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)

	for scanner.Scan() {
		var msg message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			fmt.Fprintf(os.Stderr, "mock: invalid JSON: %v\n", err)
			continue
		}
		if len(msg.ID) == 0 {
			// Notification, no response
			continue
		}

		resp := message{JSONRPC: "2.0", ID: msg.ID}

		switch msg.Method {
		case "initialize":
			resp.Result = json.RawMessage(`{
				"protocolVersion": "2024-11-05",
				"serverInfo": {"name": "jmx-mcp-server", "version": "1.0.0"},
				"capabilities": {"tools": {}, "resources": {}}
			}`)

		case "tools/list":
			resp.Result = toolsResult()

		case "resources/list":
			if os.Getenv("MOCK_NO_RESOURCES") != "" {
				resp.Result = json.RawMessage(`{"resources": []}`)
			} else {
				resp.Result = json.RawMessage(`{"resources": [
					{"uri": "jmx://java.lang_type_Memory/attributes/HeapMemoryUsage", "name": "Heap memory usage", "mimeType": "application/json"},
					{"uri": "jmx://java.lang_type_Threading/attributes/ThreadCount", "name": "Live thread count", "mimeType": "application/json"}
				]}`)
			}

		case "tools/call":
			if os.Getenv("MOCK_EMPTY_CONTENT") != "" {
				resp.Result = json.RawMessage(`{"content": []}`)
			} else {
				resp.Result = json.RawMessage(`{"content": [
					{"type": "text", "text": "java.lang\njava.util.logging\njava.nio\ncom.sun.management"}
				]}`)
			}

		default:
			errData, _ := json.Marshal(map[string]any{
				"code":    -32601,
				"message": fmt.Sprintf("method not found: %s", msg.Method),
			})
			resp.Error = errData
		}

		data, _ := json.Marshal(resp)
		data = append(data, '\n')
		os.Stdout.Write(data)
	}

	if os.Getenv("MOCK_HANG_ON_TERM") != "" {
		// Refuse to exit on stdin EOF as well, so only SIGKILL works
		select {}
	}
}

func toolsResult() json.RawMessage {
	omit := os.Getenv("MOCK_OMIT_TOOL")
	var tools []map[string]any
	for _, name := range toolNames {
		if name == omit {
			continue
		}
		tools = append(tools, map[string]any{
			"name":        name,
			"inputSchema": map[string]any{"type": "object"},
		})
	}
	data, _ := json.Marshal(map[string]any{"tools": tools})
	return data
}
