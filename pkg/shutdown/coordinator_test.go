package shutdown_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/voluzi/procscope/pkg/shutdown"
)

// worker releases its handle a little after stop is broadcast.
func worker(h *shutdown.Handle, delay time.Duration) {
	defer GinkgoRecover()
	<-h.Stopping()
	time.Sleep(delay)
	h.Release()
}

var _ = Describe("Coordinator", func() {
	var (
		c      *shutdown.Coordinator
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		c = shutdown.New()
		ctx, cancel = context.WithCancel(context.Background())
		DeferCleanup(cancel)
	})

	It("returns immediately without workers", func() {
		start := time.Now()
		result := c.RunUntilShutdown(ctx, time.Second)

		Expect(time.Since(start)).To(BeNumerically("<", 100*time.Millisecond))
		Expect(result.External).To(BeFalse())
		Expect(result.Stragglers).To(BeZero())
		Expect(c.State()).To(Equal(shutdown.Done))
	})

	It("drains every worker before the timeout", func() {
		const workers = 5
		for i := 0; i < workers; i++ {
			go worker(c.Register(), 20*time.Millisecond)
		}
		Expect(c.Outstanding()).To(Equal(workers))

		time.AfterFunc(50*time.Millisecond, cancel)
		result := c.RunUntilShutdown(ctx, 2*time.Second)

		Expect(result.External).To(BeTrue())
		Expect(result.Stragglers).To(BeZero())
		Expect(result.Drain).To(BeNumerically("<", time.Second))
		Expect(c.Outstanding()).To(BeZero())
	})

	It("returns at the timeout when a worker never releases", func() {
		const timeout = 300 * time.Millisecond
		go worker(c.Register(), 0)
		go worker(c.Register(), 0)
		stuck := c.Register()
		DeferCleanup(stuck.Release)

		cancel()
		result := c.RunUntilShutdown(ctx, timeout)

		Expect(result.External).To(BeTrue())
		Expect(result.Stragglers).To(Equal(1))
		Expect(result.Drain).To(BeNumerically(">=", timeout))
		Expect(result.Drain).To(BeNumerically("<", timeout+500*time.Millisecond))
	})

	It("returns when every worker finishes on its own", func() {
		for i := 0; i < 3; i++ {
			h := c.Register()
			time.AfterFunc(time.Duration(i+1)*10*time.Millisecond, h.Release)
		}

		result := c.RunUntilShutdown(ctx, time.Second)

		Expect(result.External).To(BeFalse())
		Expect(result.Stragglers).To(BeZero())
		Expect(ctx.Err()).NotTo(HaveOccurred())
	})

	It("ignores a stale idle signal", func() {
		first := c.Register()
		first.Release()
		second := c.Register()

		done := make(chan shutdown.Result)
		go func() {
			defer GinkgoRecover()
			done <- c.RunUntilShutdown(ctx, time.Second)
		}()

		Consistently(done, 100*time.Millisecond).ShouldNot(Receive())
		second.Release()

		var result shutdown.Result
		Eventually(done).Should(Receive(&result))
		Expect(result.External).To(BeFalse())
	})

	Context("misuse", func() {
		It("panics on register after shutdown without changing the count", func() {
			stuck := c.Register()
			cancel()
			c.RunUntilShutdown(ctx, 10*time.Millisecond)
			Expect(c.Outstanding()).To(Equal(1))

			Expect(func() { c.Register() }).To(PanicWith(MatchError(shutdown.ErrCoordinatorMisuse)))
			Expect(c.Outstanding()).To(Equal(1))

			stuck.Release()
			Expect(c.Outstanding()).To(BeZero())
		})

		It("panics when run twice", func() {
			c.RunUntilShutdown(ctx, time.Second)
			Expect(func() { c.RunUntilShutdown(ctx, time.Second) }).To(PanicWith(MatchError(shutdown.ErrCoordinatorMisuse)))
			Expect(c.State()).To(Equal(shutdown.Done))
		})
	})

	Context("handles", func() {
		It("counts a release only once", func() {
			a := c.Register()
			c.Register()

			a.Release()
			a.Release()
			Expect(c.Outstanding()).To(Equal(1))
		})

		It("wakes Wait on release", func() {
			h := c.Register()
			time.AfterFunc(20*time.Millisecond, h.Release)

			waited := make(chan struct{})
			go func() {
				h.Wait()
				close(waited)
			}()
			Eventually(waited).Should(BeClosed())
			Expect(h.Stopping()).NotTo(BeClosed())
		})

		It("wakes Wait on the stop broadcast", func() {
			h := c.Register()
			DeferCleanup(h.Release)

			waited := make(chan struct{})
			go func() {
				h.Wait()
				close(waited)
			}()
			Consistently(waited, 50*time.Millisecond).ShouldNot(BeClosed())

			cancel()
			c.RunUntilShutdown(ctx, 10*time.Millisecond)
			Eventually(waited).Should(BeClosed())
			Expect(h.Stopping()).To(BeClosed())
		})
	})
})
