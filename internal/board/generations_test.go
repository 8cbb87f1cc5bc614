package board

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerations(t *testing.T) {
	g := NewGenerations()

	first := g.Begin("u1")
	assert.True(t, g.Current("u1", first))

	second := g.Begin("u1")
	assert.Greater(t, second, first)
	assert.False(t, g.Current("u1", first))
	assert.True(t, g.Current("u1", second))

	other := g.Begin("u2")
	assert.True(t, g.Current("u2", other))
	assert.True(t, g.Current("u1", second), "keys are independent")
}

func TestGenerationsConcurrentBegin(t *testing.T) {
	g := NewGenerations()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Begin("u1")
		}()
	}
	wg.Wait()
	assert.True(t, g.Current("u1", 50))
}
