package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/demolens/tickstate/pkg/core"
	"github.com/demolens/tickstate/pkg/streaming"
	"github.com/invopop/jsonschema"
	"github.com/spf13/pflag"
)

func schemaCommand(args []string) error {
	fs := pflag.NewFlagSet("schema", pflag.ContinueOnError)
	outPath := fs.String("out", "", "path to write the JSON schema")
	direction := fs.String("direction", "input", "which stream to describe (input, output)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *outPath == "" {
		return fmt.Errorf("--out is required")
	}

	schema, err := buildSchema(*direction)
	if err != nil {
		return err
	}
	if err := writeSchema(*outPath, schema); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	fmt.Println("Wrote schema to", *outPath)
	return nil
}

var (
	valueType     = reflect.TypeOf(streaming.Value{})
	gameEventType = reflect.TypeOf(streaming.GameEventMessage{})
)

// inputMessages are the envelope payloads accepted on the entity stream.
var inputMessages = []struct {
	Type    string
	Payload any
}{
	{streaming.TypeHeader, streaming.Header{}},
	{streaming.TypeClassTable, streaming.ClassTable{}},
	{streaming.TypeStringEntry, streaming.StringEntry{}},
	{streaming.TypeEntityUpdate, streaming.EntityUpdate{}},
	{streaming.TypeGameEvent, streaming.GameEventMessage{}},
	{streaming.TypePacketBoundary, streaming.PacketBoundary{}},
}

// outputMessages are the envelope payloads sent to streaming consumers.
var outputMessages = []struct {
	Type    string
	Payload any
}{
	{streaming.TypeStartDemo, streaming.StartDemoPayload{}},
	{streaming.TypeSnapshot, core.Snapshot{}},
	{streaming.TypeEndDemo, streaming.EndDemoPayload{}},
}

func buildSchema(direction string) (*jsonschema.Schema, error) {
	messages := inputMessages
	title := "tickstate entity stream"
	switch direction {
	case "input":
	case "output":
		messages = outputMessages
		title = "tickstate snapshot stream"
	default:
		return nil, fmt.Errorf("unknown direction %q", direction)
	}

	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
		Mapper:                     mapType,
	}

	schema := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       title,
		Description: "One JSON envelope per line",
		Definitions: jsonschema.Definitions{"Value": valueSchema()},
	}
	for _, m := range messages {
		payload := reflector.Reflect(m.Payload)
		payload.Version = ""
		payload.ID = ""

		props := jsonschema.NewProperties()
		props.Set("type", &jsonschema.Schema{Type: "string", Const: m.Type})
		props.Set("payload", payload)
		schema.OneOf = append(schema.OneOf, &jsonschema.Schema{
			Title:      m.Type,
			Type:       "object",
			Properties: props,
			Required:   []string{"type", "payload"},
		})
	}
	return schema, nil
}

// mapType describes the types whose JSON form differs from their Go layout.
func mapType(t reflect.Type) *jsonschema.Schema {
	switch t {
	case valueType:
		return &jsonschema.Schema{Ref: "#/$defs/Value"}
	case gameEventType:
		props := jsonschema.NewProperties()
		props.Set("kind", &jsonschema.Schema{Type: "string", Description: "game event name"})
		props.Set("fields", &jsonschema.Schema{Type: "object", Description: "event fields, omitted for unknown events"})
		return &jsonschema.Schema{
			Type:       "object",
			Properties: props,
			Required:   []string{"kind"},
		}
	}
	return nil
}

// valueSchema is a property value: an object holding exactly one typed key.
func valueSchema() *jsonschema.Schema {
	number := &jsonschema.Schema{Type: "number"}
	variant := func(key string, s *jsonschema.Schema) *jsonschema.Schema {
		props := jsonschema.NewProperties()
		props.Set(key, s)
		return &jsonschema.Schema{
			Type:       "object",
			Properties: props,
			Required:   []string{key},
		}
	}
	return &jsonschema.Schema{
		Description: "typed property value",
		OneOf: []*jsonschema.Schema{
			variant("int", &jsonschema.Schema{Type: "integer"}),
			variant("float", number),
			variant("bool", &jsonschema.Schema{Type: "boolean"}),
			variant("vector", &jsonschema.Schema{Type: "array", Items: number, Description: "x, y, z"}),
			variant("vectorxy", &jsonschema.Schema{Type: "array", Items: number, Description: "x, y"}),
			variant("string", &jsonschema.Schema{Type: "string"}),
			variant("array", &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Ref: "#/$defs/Value"}}),
		},
	}
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
