package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/itz4blitz/mcpcheck/internal/client"
	"github.com/itz4blitz/mcpcheck/internal/protocol"
)

// RequiredTools are the JMX tool names every conforming server must expose
// in its tools/list response.
var RequiredTools = []string{
	"listMBeans",
	"getMBeanInfo",
	"getAttribute",
	"setAttribute",
	"listDomains",
	"getConnectionInfo",
}

// Step is one conformance check. A nil return means the step passed;
// otherwise the error names what was missing or wrong.
type Step struct {
	Name string
	Run  func(ctx context.Context, c *client.Client) error
}

// Sequence returns the fixed conformance steps, in execution order. Later
// steps are only meaningful once the handshake succeeded, which is why the
// runner short-circuits.
func Sequence() []Step {
	return []Step{
		{Name: "initialize", Run: checkInitialize},
		{Name: "tools/list", Run: checkListTools},
		{Name: "resources/list", Run: checkListResources},
		{Name: "tools/call listDomains", Run: checkCallListDomains},
	}
}

func checkInitialize(ctx context.Context, c *client.Client) error {
	params := protocol.InitializeParams{
		ProtocolVersion: protocol.Version,
		Capabilities: map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
		},
		ClientInfo: protocol.ClientInfo{
			Name:    "mcpcheck",
			Version: "1.0.0",
		},
	}

	resp, err := c.Call(ctx, "initialize", params)
	if err != nil {
		return err
	}
	if e, ok := resp.ErrorObject(); ok {
		return fmt.Errorf("initialize rejected: %w", e)
	}

	var result protocol.InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return fmt.Errorf("parse initialize result: %w", err)
	}
	if len(result.Capabilities) == 0 {
		return errors.New("no capabilities in initialize response")
	}

	// Handshake is only complete once the server has been told the client
	// is ready.
	if err := c.Notify("notifications/initialized", nil); err != nil {
		return fmt.Errorf("send initialized notification: %w", err)
	}
	return nil
}

func checkListTools(ctx context.Context, c *client.Client) error {
	resp, err := c.Call(ctx, "tools/list", nil)
	if err != nil {
		return err
	}
	if e, ok := resp.ErrorObject(); ok {
		return fmt.Errorf("tools/list rejected: %w", e)
	}

	var result protocol.ToolsListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return fmt.Errorf("parse tools/list result: %w", err)
	}

	found := make(map[string]bool, len(result.Tools))
	for _, tool := range result.Tools {
		found[tool.Name] = true
	}

	var missing []string
	for _, name := range RequiredTools {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tools: %s", strings.Join(missing, ", "))
	}
	return nil
}

func checkListResources(ctx context.Context, c *client.Client) error {
	resp, err := c.Call(ctx, "resources/list", nil)
	if err != nil {
		return err
	}
	if e, ok := resp.ErrorObject(); ok {
		return fmt.Errorf("resources/list rejected: %w", e)
	}

	var result protocol.ResourcesListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return fmt.Errorf("parse resources/list result: %w", err)
	}
	if len(result.Resources) == 0 {
		return errors.New("no resources found")
	}
	return nil
}

func checkCallListDomains(ctx context.Context, c *client.Client) error {
	resp, err := c.Call(ctx, "tools/call", protocol.CallToolParams{Name: "listDomains"})
	if err != nil {
		return err
	}
	if e, ok := resp.ErrorObject(); ok {
		return fmt.Errorf("tools/call listDomains rejected: %w", e)
	}

	var result protocol.CallToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return fmt.Errorf("parse tools/call result: %w", err)
	}
	if result.IsError {
		return errors.New("listDomains reported a tool error")
	}
	if len(result.Content) == 0 {
		return errors.New("no content in tool response")
	}
	return nil
}
