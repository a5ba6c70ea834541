// Package progress 处理点位里程碑：电杆勾选项的状态归约与里程碑写入。
package progress

import "fieldtrack/internal/model"

// PoleFlags 电杆勾选项；不变量 Complete == Giro && Isolator
type PoleFlags struct {
	Giro     bool `json:"giro"`
	Isolator bool `json:"isolator"`
	Complete bool `json:"complete"`
}

// EventKind 勾选事件类型
type EventKind string

const (
	EventSetGiro      EventKind = "giro"
	EventSetIsolator  EventKind = "isolator"
	EventMarkComplete EventKind = "complete"
)

// Event 一次勾选
type Event struct {
	Kind  EventKind `json:"kind"`
	Value bool      `json:"value"`
}

// Reduce (flags, event) -> flags
func Reduce(flags PoleFlags, ev Event) PoleFlags {
	switch ev.Kind {
	case EventSetGiro:
		flags.Giro = ev.Value
	case EventSetIsolator:
		flags.Isolator = ev.Value
	case EventMarkComplete:
		// 完成 = 两个子项同时完成；取消完成清空两个子项
		flags.Giro = ev.Value
		flags.Isolator = ev.Value
	}
	return normalize(flags)
}

// ReduceAll 依次应用事件
func ReduceAll(flags PoleFlags, events ...Event) PoleFlags {
	flags = normalize(flags)
	for _, ev := range events {
		flags = Reduce(flags, ev)
	}
	return flags
}

func normalize(flags PoleFlags) PoleFlags {
	flags.Complete = flags.Giro && flags.Isolator
	return flags
}

// StatusFor 勾选项 -> 电杆日期单元格的编码状态；两项都未完成时优先标记转角待办
func StatusFor(flags PoleFlags) model.Status {
	switch {
	case flags.Giro && flags.Isolator:
		return model.StatusNormal
	case !flags.Giro:
		return model.StatusGirosPending
	default:
		return model.StatusIsolatorsPending
	}
}

// FlagsFromStatus 由编码状态还原勾选项；hasDate 为 false 表示电杆尚未安装
func FlagsFromStatus(status model.Status, hasDate bool) PoleFlags {
	if !hasDate {
		return PoleFlags{}
	}
	switch status {
	case model.StatusGirosPending:
		return PoleFlags{Giro: false, Isolator: true}
	case model.StatusIsolatorsPending:
		return PoleFlags{Giro: true, Isolator: false}
	default:
		return PoleFlags{Giro: true, Isolator: true, Complete: true}
	}
}
