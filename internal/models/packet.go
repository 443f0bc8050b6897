package models

import "encoding/json"

// PacketType tags the wire form of a packet.
type PacketType string

const (
	PacketTypeCommand     PacketType = "command"
	PacketTypePauseMarker PacketType = "pause-marker"
)

// Packet is either a CommandPacket or a PauseMarker.
type Packet interface {
	Record() PacketRecord
	isPacket()
}

// CommandPacket is a device command line. LayerID is empty for job-level commands.
type CommandPacket struct {
	Command string
	LayerID string
}

// PauseMarker asks the transport to halt before a layer. It is never written to the device.
type PauseMarker struct {
	LayerID   string
	LayerName string
}

func (CommandPacket) isPacket() {}
func (PauseMarker) isPacket()   {}

// PacketRecord is the flat serialized form shared by JSON and msgpack exports.
type PacketRecord struct {
	Type      PacketType `json:"type" msgpack:"type"`
	Command   string     `json:"command,omitempty" msgpack:"command,omitempty"`
	LayerID   string     `json:"layerId,omitempty" msgpack:"layerId,omitempty"`
	LayerName string     `json:"layerName,omitempty" msgpack:"layerName,omitempty"`
}

func (p CommandPacket) Record() PacketRecord {
	return PacketRecord{Type: PacketTypeCommand, Command: p.Command, LayerID: p.LayerID}
}

func (p PauseMarker) Record() PacketRecord {
	return PacketRecord{Type: PacketTypePauseMarker, LayerID: p.LayerID, LayerName: p.LayerName}
}

func (p CommandPacket) MarshalJSON() ([]byte, error) { return json.Marshal(p.Record()) }
func (p PauseMarker) MarshalJSON() ([]byte, error)   { return json.Marshal(p.Record()) }

// PacketRecords flattens a packet list for export.
func PacketRecords(packets []Packet) []PacketRecord {
	out := make([]PacketRecord, len(packets))
	for i, p := range packets {
		out[i] = p.Record()
	}
	return out
}

// CommandCount counts the packets that are actually written to the device.
func CommandCount(packets []Packet) int {
	n := 0
	for _, p := range packets {
		if _, ok := p.(CommandPacket); ok {
			n++
		}
	}
	return n
}
