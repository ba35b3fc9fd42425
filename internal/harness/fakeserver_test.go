package harness

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/itz4blitz/mcpcheck/internal/client"
	"github.com/itz4blitz/mcpcheck/internal/protocol"
	"github.com/itz4blitz/mcpcheck/internal/transport"
)

// fakeConfig shapes the fake server's misbehavior for a test.
type fakeConfig struct {
	OmitTools   []string                      // tool names dropped from tools/list
	NoResources bool                          // resources/list returns an empty list
	EmptyCall   bool                          // tools/call returns empty content
	Errors      map[string]*protocol.RPCError // forced error responses per method
	CloseAfter  int                           // close the stream after N responses (0 = never)
	Malformed   bool                          // reply with non-JSON garbage
	WrongID     bool                          // echo a bogus id on every response
}

var fakeTools = []protocol.Tool{
	{Name: "listMBeans", Description: "List all discovered MBeans"},
	{Name: "getMBeanInfo", Description: "Get detailed information about a specific MBean"},
	{Name: "getAttribute", Description: "Get the value of an MBean attribute"},
	{Name: "setAttribute", Description: "Set the value of an MBean attribute"},
	{Name: "listDomains", Description: "List all MBean domains"},
	{Name: "getConnectionInfo", Description: "Get JMX connection status and information"},
}

// startFakeServer wires a scripted JMX MCP server to a real stdio transport
// over in-process pipes and returns a client talking to it.
func startFakeServer(t *testing.T, cfg fakeConfig) *client.Client {
	t.Helper()

	serverIn, harnessOut := io.Pipe()
	harnessIn, serverOut := io.Pipe()

	tr := transport.New(harnessOut, harnessIn)
	t.Cleanup(func() { tr.Close() })

	go serveFake(serverIn, serverOut, cfg)

	return client.New(tr, nil)
}

func serveFake(in io.Reader, out io.WriteCloser, cfg fakeConfig) {
	defer out.Close()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)
	responses := 0

	for scanner.Scan() {
		var req protocol.Message
		if err := json.Unmarshal(bytes.TrimSpace(scanner.Bytes()), &req); err != nil {
			continue
		}
		if req.IsNotification() {
			continue
		}

		if cfg.Malformed {
			out.Write([]byte("Started JmxMcpServerApplication in 2.31 seconds\n"))
			continue
		}

		id := req.ID
		if cfg.WrongID {
			id = json.RawMessage(`9999`)
		}

		if rpcErr, ok := cfg.Errors[req.Method]; ok {
			writeFakeError(out, id, rpcErr)
		} else {
			writeFakeResult(out, id, fakeResult(req, cfg))
		}

		responses++
		if cfg.CloseAfter > 0 && responses >= cfg.CloseAfter {
			out.Close()
			// Keep draining so the harness's pipe writes never block
			io.Copy(io.Discard, in)
			return
		}
	}
}

func fakeResult(req protocol.Message, cfg fakeConfig) any {
	switch req.Method {
	case "initialize":
		return protocol.InitializeResult{
			ProtocolVersion: protocol.Version,
			Capabilities:    json.RawMessage(`{"tools":{},"resources":{}}`),
			ServerInfo:      protocol.ServerInfo{Name: "jmx-mcp-server", Version: "1.0.0"},
		}

	case "tools/list":
		omitted := make(map[string]bool, len(cfg.OmitTools))
		for _, name := range cfg.OmitTools {
			omitted[name] = true
		}
		var tools []protocol.Tool
		for _, tool := range fakeTools {
			if !omitted[tool.Name] {
				tools = append(tools, tool)
			}
		}
		return protocol.ToolsListResult{Tools: tools}

	case "resources/list":
		if cfg.NoResources {
			return protocol.ResourcesListResult{Resources: []protocol.Resource{}}
		}
		return protocol.ResourcesListResult{Resources: []protocol.Resource{
			{URI: "jmx://java.lang_type_Memory/attributes/HeapMemoryUsage", Name: "Heap memory usage", MimeType: "application/json"},
			{URI: "jmx://java.lang_type_Runtime/attributes/Uptime", Name: "JVM uptime", MimeType: "application/json"},
		}}

	case "tools/call":
		if cfg.EmptyCall {
			return protocol.CallToolResult{Content: []protocol.ContentBlock{}}
		}
		return protocol.CallToolResult{Content: []protocol.ContentBlock{
			protocol.ContentBlock(`{"type":"text","text":"java.lang\njava.util.logging\ncom.sun.management"}`),
		}}

	default:
		return map[string]any{}
	}
}

func writeFakeResult(out io.Writer, id json.RawMessage, result any) {
	data, _ := json.Marshal(result)
	line, _ := json.Marshal(protocol.Message{JSONRPC: "2.0", ID: id, Result: data})
	fmt.Fprintf(out, "%s\n", line)
}

func writeFakeError(out io.Writer, id json.RawMessage, rpcErr *protocol.RPCError) {
	data, _ := json.Marshal(rpcErr)
	line, _ := json.Marshal(protocol.Message{JSONRPC: "2.0", ID: id, Error: data})
	fmt.Fprintf(out, "%s\n", line)
}
