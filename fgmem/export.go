package fgmem

import (
	"fmt"
	"strings"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// ExportAsText renders one closed frame as a human-readable report. Frames
// outside the window render as an empty report under the same heading, so the
// output is always well-formed.
func (p *Profiler) ExportAsText(frameNumber uint64) string {
	stats := p.GetFrameStats(frameNumber)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Frame #%d\n", stats.FrameNumber)

	for i := range stats.Nodes {
		node := &stats.Nodes[i]
		fmt.Fprintf(&sb, "  Task %q (id %d)\n", node.TaskName, node.TaskID)
		fmt.Fprintf(&sb, "    Stack: %d bytes in %d allocations\n", node.StackBytes, node.StackAllocations)
		fmt.Fprintf(&sb, "    Heap:  %d bytes in %d allocations\n", node.HeapBytes, node.HeapAllocations)
		fmt.Fprintf(&sb, "    VRAM:  %d bytes in %d allocations\n", node.VRAMBytes, node.VRAMAllocations)
		if node.AliasedAllocations > 0 {
			fmt.Fprintf(&sb, "    Aliased: %d allocations, %d bytes saved\n", node.AliasedAllocations, node.BytesSavedViaAliasing)
		}
	}

	fmt.Fprintf(&sb, "  Total: %d bytes in %d allocations, %d bytes saved via aliasing\n",
		stats.Totals.TotalBytes(), stats.Totals.TotalAllocations(), stats.Totals.BytesSavedViaAliasing)
	fmt.Fprintf(&sb, "  Peak usage: stack %d, heap %d, vram %d\n",
		stats.PeakStackBytes, stats.PeakHeapBytes, stats.PeakVRAMBytes)

	return sb.String()
}

// ExportAsJSON renders one closed frame as a JSON document. Frames outside
// the window yield a document with an empty nodes array and zero-valued
// totals, never invalid JSON.
func (p *Profiler) ExportAsJSON(frameNumber uint64) ([]byte, error) {
	stats := p.GetFrameStats(frameNumber)

	writer := jwriter.NewWriter()
	obj := writer.Object()

	obj.Name("frameNumber").Int(int(stats.FrameNumber))

	nodes := obj.Name("nodes").Array()
	for i := range stats.Nodes {
		nodeObj := nodes.Object()
		writeRecordJson(&nodeObj, &stats.Nodes[i])
		nodeObj.End()
	}
	nodes.End()

	totals := obj.Name("totals").Object()
	writeRecordJson(&totals, &stats.Totals)
	totals.End()

	peaks := obj.Name("peakUsage").Object()
	peaks.Name("stackBytes").Int(stats.PeakStackBytes)
	peaks.Name("heapBytes").Int(stats.PeakHeapBytes)
	peaks.Name("vramBytes").Int(stats.PeakVRAMBytes)
	peaks.End()

	obj.End()

	if err := writer.Error(); err != nil {
		return nil, err
	}
	return writer.Bytes(), nil
}

func writeRecordJson(json *jwriter.ObjectState, record *NodeAllocationRecord) {
	json.Name("nodeId").Int(int(record.TaskID))
	json.Name("nodeName").String(record.TaskName)
	json.Name("stackAllocations").Int(record.StackAllocations)
	json.Name("heapAllocations").Int(record.HeapAllocations)
	json.Name("vramAllocations").Int(record.VRAMAllocations)
	json.Name("stackBytes").Int(record.StackBytes)
	json.Name("heapBytes").Int(record.HeapBytes)
	json.Name("vramBytes").Int(record.VRAMBytes)
	json.Name("aliasedAllocations").Int(record.AliasedAllocations)
	json.Name("bytesSavedViaAliasing").Int(record.BytesSavedViaAliasing)
}
