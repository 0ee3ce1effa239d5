package run

import (
	"time"

	"github.com/John-Robertt/findingfiles/internal/domain"
)

// Observer 把批量扫描的进度从执行流程中解耦出来。
//
// 约束：
// - run 包只发事件，不做任何输出（stdout 留给报告）。
// - OnPageDone 只在收集结果的 goroutine 中调用，但实现仍应并发安全。
type Observer interface {
	// OnStart 在开始执行页面扫描前调用。
	OnStart(total, workers int)
	// OnPageDone 在某个页面扫描完成（成功或失败）时调用，idx 从 1 开始。
	OnPageDone(idx, total int, page domain.PageReport, dur time.Duration)
}
