package server

import (
	"errors"
	"time"
)

var ErrRoomStopped = errors.New("server: room stopped")

// StartTicker 启动房间的 Tick 循环（单协程推进世界）；重复调用无效
func (r *Room) StartTicker() {
	r.tickerOnce.Do(func() {
		go r.run(r.tuning.TickPeriod())
	})
}

func (r *Room) run(period time.Duration) {
	defer close(r.done)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-r.quit:
			r.shutdown()
			return
		case now := <-ticker.C:
			// 核心循环：处理输入 → 更新世界 → 广播结果
			r.Step(now)
		}
	}
}

// Stop 结束 Tick 循环并等待其退出；未启动的房间立即返回
func (r *Room) Stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
	})
	started := true
	r.tickerOnce.Do(func() { started = false })
	if started {
		<-r.done
	}
}
