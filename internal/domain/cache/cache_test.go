package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	cache "github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/cache"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLRU(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new LRU with default options", t, func() {
		c := cache.NewLRU[string]()

		Convey("Then it should start empty", func() {
			So(c.Len(), ShouldEqual, 0)
			_, ok := c.Get(ctx, "missing")
			So(ok, ShouldBeFalse)
			So(c.Stats().Misses, ShouldEqual, 1)
		})

		Convey("When storing a value", func() {
			c.Put(ctx, "k", "v")
			v, ok := c.Get(ctx, "k")

			Convey("Then it should be returned and counted as a hit", func() {
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "v")
				So(c.Stats().Hits, ShouldEqual, 1)
				So(c.Stats().Size, ShouldEqual, 1)
			})
		})

		Convey("When purging", func() {
			c.Put(ctx, "a", "1")
			c.Put(ctx, "b", "2")
			c.Purge(ctx)

			Convey("Then the cache should be empty", func() {
				So(c.Len(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a bounded LRU", t, func() {
		c := cache.NewLRU[int](cache.WithMaxEntries(2))

		Convey("When exceeding capacity", func() {
			c.Put(ctx, "a", 1)
			c.Put(ctx, "b", 2)
			_, _ = c.Get(ctx, "a") // a becomes most recent
			c.Put(ctx, "c", 3)

			Convey("Then the least recently used entry should be evicted", func() {
				_, okA := c.Get(ctx, "a")
				_, okB := c.Get(ctx, "b")
				_, okC := c.Get(ctx, "c")
				So(okA, ShouldBeTrue)
				So(okB, ShouldBeFalse)
				So(okC, ShouldBeTrue)
				So(c.Len(), ShouldEqual, 2)
			})
		})
	})

	Convey("Given a disabled LRU", t, func() {
		c := cache.NewLRU[int](cache.WithMaxEntries(0))

		Convey("When storing a value", func() {
			c.Put(ctx, "a", 1)
			_, ok := c.Get(ctx, "a")

			Convey("Then nothing should be cached", func() {
				So(ok, ShouldBeFalse)
				So(c.Len(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given concurrent access", t, func() {
		c := cache.NewLRU[int](cache.WithMaxEntries(64))

		Convey("When many goroutines read and write", func() {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(n int) {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						key := fmt.Sprintf("k-%d", (n+j)%80)
						c.Put(ctx, key, j)
						_, _ = c.Get(ctx, key)
					}
				}(i)
			}
			wg.Wait()

			Convey("Then the size should respect the bound", func() {
				So(c.Len(), ShouldBeLessThanOrEqualTo, 64)
			})
		})
	})
}
