package config

import (
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Render writes s back out as HCL in the same shape Load accepts.
func (s Settings) Render() []byte {
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	sched := root.AppendNewBlock("scheduler", nil).Body()
	sched.SetAttributeValue("name", cty.StringVal(s.Scheduler.Name))
	sched.SetAttributeValue("quantum_us", cty.NumberIntVal(s.Scheduler.Quantum.Microseconds()))
	sched.SetAttributeValue("max_threads", cty.NumberIntVal(int64(s.Scheduler.MaxThreads)))
	sched.SetAttributeValue("history_size", cty.NumberIntVal(int64(s.Scheduler.HistorySize)))
	sched.SetAttributeValue("manual_ticks", cty.BoolVal(s.Scheduler.ManualTicks))
	root.AppendNewline()

	log := root.AppendNewBlock("log", nil).Body()
	log.SetAttributeValue("level", cty.StringVal(s.Log.Level))
	log.SetAttributeValue("format", cty.StringVal(s.Log.Format))
	root.AppendNewline()

	work := root.AppendNewBlock("workload", nil).Body()
	work.SetAttributeValue("threads", cty.NumberIntVal(int64(s.Workload.Threads)))
	work.SetAttributeValue("iterations", cty.NumberIntVal(int64(s.Workload.Iterations)))
	work.SetAttributeValue("sleep_every", cty.NumberIntVal(int64(s.Workload.SleepEvery)))
	work.SetAttributeValue("block_every", cty.NumberIntVal(int64(s.Workload.BlockEvery)))

	return f.Bytes()
}
