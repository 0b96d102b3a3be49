package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stylo/wardrobe/domain/catalog"
	"github.com/stylo/wardrobe/domain/intent"
)

func basicCandidates() []catalog.Item {
	return []catalog.Item{
		{ID: "top-1", Slot: catalog.SlotTop, Type: "t-shirt", Color: "blue"},
		{ID: "bottom-1", Slot: catalog.SlotBottom, Type: "jeans", Color: "navy"},
		{ID: "shoe-1", Slot: catalog.SlotFootwear, Type: "sneakers", Color: "white"},
	}
}

func TestSelector_AssemblesOutfitFromMinimalCandidates(t *testing.T) {
	s := NewSelector(newFakeEmbedder(), discardLogger())
	outfits := s.Select(context.Background(), "casual coffee", basicCandidates(), intent.Casual, 3)

	require.Len(t, outfits, 1)
	require.True(t, outfits[0].HasRequiredSlots())
	require.NotEmpty(t, outfits[0].Rationale)
}

func TestSelector_NoCandidatesReturnsNil(t *testing.T) {
	s := NewSelector(newFakeEmbedder(), discardLogger())
	outfits := s.Select(context.Background(), "casual coffee", nil, intent.Casual, 3)
	require.Nil(t, outfits)
}

func TestSelector_MissingRequiredSlotReturnsNil(t *testing.T) {
	s := NewSelector(newFakeEmbedder(), discardLogger())
	candidates := []catalog.Item{
		{ID: "top-1", Slot: catalog.SlotTop, Type: "t-shirt", Color: "blue"},
		{ID: "bottom-1", Slot: catalog.SlotBottom, Type: "jeans", Color: "navy"},
	}
	outfits := s.Select(context.Background(), "casual coffee", candidates, intent.Casual, 3)
	require.Nil(t, outfits)
}

func TestSelector_ClampsKToThree(t *testing.T) {
	s := NewSelector(newFakeEmbedder(), discardLogger())
	candidates := []catalog.Item{
		{ID: "top-1", Slot: catalog.SlotTop, Type: "t-shirt", Color: "blue"},
		{ID: "top-2", Slot: catalog.SlotTop, Type: "polo", Color: "red"},
		{ID: "bottom-1", Slot: catalog.SlotBottom, Type: "jeans", Color: "navy"},
		{ID: "bottom-2", Slot: catalog.SlotBottom, Type: "chinos", Color: "tan"},
		{ID: "shoe-1", Slot: catalog.SlotFootwear, Type: "sneakers", Color: "white"},
		{ID: "shoe-2", Slot: catalog.SlotFootwear, Type: "boots", Color: "brown"},
	}
	outfits := s.Select(context.Background(), "casual coffee", candidates, intent.Casual, 99)
	require.LessOrEqual(t, len(outfits), 3)
}

func TestSelector_HardFilterDegradesWhenEveryItemIsAvoided(t *testing.T) {
	s := NewSelector(newFakeEmbedder(), discardLogger())
	candidates := []catalog.Item{
		{ID: "top-1", Slot: catalog.SlotTop, Type: "t-shirt", Color: "blue"},
		{ID: "bottom-1", Slot: catalog.SlotBottom, Type: "shorts", Color: "navy"},
		{ID: "shoe-1", Slot: catalog.SlotFootwear, Type: "running sneaker", Color: "white"},
	}
	outfits := s.Select(context.Background(), "business meeting", candidates, intent.Business, 3)
	// Every hard-avoid token matches every item in its slot, so HardFilter
	// degrades to returning the unfiltered pool rather than emptying it.
	require.Len(t, outfits, 1)
}
