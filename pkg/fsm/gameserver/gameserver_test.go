// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gameserver_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netherwatch/netherwatch-core/pkg/config"
	"github.com/netherwatch/netherwatch-core/pkg/fsm/gameserver"
	"github.com/netherwatch/netherwatch-core/pkg/models"
	"github.com/netherwatch/netherwatch-core/pkg/service/systemd"
)

// recordingSubscriber collects published transition events.
type recordingSubscriber struct {
	mutex  sync.Mutex
	events []models.TransitionEvent
}

func (r *recordingSubscriber) HandleTransition(_ context.Context, event models.TransitionEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSubscriber) all() []models.TransitionEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	events := make([]models.TransitionEvent, len(r.events))
	copy(events, r.events)

	return events
}

func intPtr(v int) *int {
	return &v
}

var _ = Describe("Instance", func() {
	var (
		ctx      context.Context
		instance *gameserver.Instance
	)

	BeforeEach(func() {
		ctx = context.Background()
		instance = gameserver.NewInstance("survival")
	})

	It("should start offline", func() {
		Expect(instance.Status()).To(Equal(models.StatusOffline))
	})

	It("should return nil when the status is unchanged", func() {
		Expect(instance.Observe(ctx, models.StatusOffline, nil)).To(BeNil())
	})

	It("should walk the normal startup path", func() {
		event := instance.Observe(ctx, models.StatusStarting, nil)
		Expect(event).ToNot(BeNil())
		Expect(event.From).To(Equal(models.StatusOffline))
		Expect(event.To).To(Equal(models.StatusStarting))
		Expect(event.Unexpected).To(BeFalse())

		event = instance.Observe(ctx, models.StatusOnline, nil)
		Expect(event).ToNot(BeNil())
		Expect(event.Unexpected).To(BeFalse())
		Expect(instance.Status()).To(Equal(models.StatusOnline))
	})

	Context("when online", func() {
		BeforeEach(func() {
			instance.Observe(ctx, models.StatusStarting, nil)
			instance.Observe(ctx, models.StatusOnline, nil)
		})

		It("should treat the stop path as expected", func() {
			event := instance.Observe(ctx, models.StatusStopping, nil)
			Expect(event.Unexpected).To(BeFalse())

			event = instance.Observe(ctx, models.StatusOffline, intPtr(0))
			Expect(event.Unexpected).To(BeFalse())
			Expect(event.ExitCode).ToNot(BeNil())
			Expect(*event.ExitCode).To(Equal(0))
		})

		It("should treat a jump straight to offline as unexpected", func() {
			event := instance.Observe(ctx, models.StatusOffline, intPtr(137))
			Expect(event).ToNot(BeNil())
			Expect(event.Unexpected).To(BeTrue())
			Expect(*event.ExitCode).To(Equal(137))
		})

		It("should treat a jump to starting as unexpected", func() {
			event := instance.Observe(ctx, models.StatusStarting, nil)
			Expect(event.Unexpected).To(BeTrue())
		})

		It("should support the external crash assertion", func() {
			event := instance.AssertCrashed(ctx)
			Expect(event).ToNot(BeNil())
			Expect(event.Unexpected).To(BeTrue())
			Expect(instance.Status()).To(Equal(models.StatusOffline))
		})

		It("should publish exactly one event when observation and assertion race", func() {
			events := make(chan *models.TransitionEvent, 2)

			var wg sync.WaitGroup

			wg.Add(2)
			go func() {
				defer wg.Done()
				events <- instance.Observe(ctx, models.StatusOffline, intPtr(137))
			}()
			go func() {
				defer wg.Done()
				events <- instance.AssertCrashed(ctx)
			}()
			wg.Wait()
			close(events)

			published := 0
			for event := range events {
				if event != nil {
					Expect(event.From).To(Equal(models.StatusOnline))
					Expect(event.Unexpected).To(BeTrue())
					published++
				}
			}

			Expect(published).To(Equal(1))
			Expect(instance.Status()).To(Equal(models.StatusOffline))
		})
	})

	It("should not assert a crash while offline", func() {
		Expect(instance.AssertCrashed(ctx)).To(BeNil())
	})

	It("should forget exit information once back online", func() {
		instance.Observe(ctx, models.StatusOnline, nil)
		instance.Observe(ctx, models.StatusOffline, intPtr(137))
		instance.Observe(ctx, models.StatusOnline, nil)

		event := instance.Observe(ctx, models.StatusOffline, nil)
		Expect(event.ExitCode).To(BeNil())
	})
})

var _ = Describe("Tracker", func() {
	var (
		ctx         context.Context
		cancel      context.CancelFunc
		mockSystemd *systemd.MockService
		tracker     *gameserver.Tracker
		subscriber  *recordingSubscriber
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		mockSystemd = systemd.NewMockService()

		cfg := &config.FleetConfig{
			Servers: []config.ServerDescriptor{
				{ID: "survival", RconPort: 25576, RconPassword: "secret", Unit: "mc-survival.service"},
			},
			FallbackServerID: "survival",
			PollIntervalMs:   20,
		}

		subscriber = &recordingSubscriber{}
		tracker = gameserver.NewTracker(cfg).WithSystemdService(mockSystemd)
		tracker.Subscribe(subscriber)
	})

	AfterEach(func() {
		cancel()
	})

	It("should publish an online event when the unit becomes active", func() {
		mockSystemd.SetStatus("mc-survival.service", systemd.ServiceInfo{
			Status:      models.StatusOnline,
			ActiveState: "active",
		})

		tracker.Start(ctx)

		Eventually(func() models.ServerStatus {
			return tracker.Status("survival")
		}, time.Second, 10*time.Millisecond).Should(Equal(models.StatusOnline))

		events := subscriber.all()
		Expect(events).ToNot(BeEmpty())
		Expect(events[0].To).To(Equal(models.StatusOnline))
		Expect(events[0].ServerID).To(Equal("survival"))
	})

	It("should publish an unexpected offline event when the unit dies", func() {
		mockSystemd.SetStatus("mc-survival.service", systemd.ServiceInfo{
			Status:      models.StatusOnline,
			ActiveState: "active",
		})

		tracker.Start(ctx)

		Eventually(func() models.ServerStatus {
			return tracker.Status("survival")
		}, time.Second, 10*time.Millisecond).Should(Equal(models.StatusOnline))

		mockSystemd.SetStatus("mc-survival.service", systemd.ServiceInfo{
			Status:      models.StatusOffline,
			ActiveState: "failed",
			ExitCode:    intPtr(137),
			Failed:      true,
		})

		Eventually(func() models.ServerStatus {
			return tracker.Status("survival")
		}, time.Second, 10*time.Millisecond).Should(Equal(models.StatusOffline))

		events := subscriber.all()
		last := events[len(events)-1]
		Expect(last.To).To(Equal(models.StatusOffline))
		Expect(last.Unexpected).To(BeTrue())
		Expect(last.ExitCode).ToNot(BeNil())
		Expect(*last.ExitCode).To(Equal(137))
	})

	It("should keep polling after supervisor failures", func() {
		mockSystemd.StatusError = systemd.ErrUnitNotFound

		tracker.Start(ctx)

		Consistently(func() models.ServerStatus {
			return tracker.Status("survival")
		}, 100*time.Millisecond, 20*time.Millisecond).Should(Equal(models.StatusOffline))

		mockSystemd.StatusError = nil
		mockSystemd.SetStatus("mc-survival.service", systemd.ServiceInfo{
			Status:      models.StatusOnline,
			ActiveState: "active",
		})

		Eventually(func() models.ServerStatus {
			return tracker.Status("survival")
		}, 10*time.Second, 20*time.Millisecond).Should(Equal(models.StatusOnline))
	})

	It("should report offline for unknown server ids", func() {
		Expect(tracker.Status("skyblock")).To(Equal(models.StatusOffline))
	})

	It("should expose all statuses", func() {
		statuses := tracker.Statuses()
		Expect(statuses).To(HaveKeyWithValue("survival", models.StatusOffline))
	})
})
