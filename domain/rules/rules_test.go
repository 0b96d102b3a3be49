package rules

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stylo/wardrobe/domain/catalog"
	"github.com/stylo/wardrobe/domain/intent"
)

func itemNamed(id, typ string) catalog.Item {
	return catalog.Item{ID: id, Type: typ}
}

func TestHardFilter_BusinessDropsFleeceLayer(t *testing.T) {
	items := []catalog.Item{
		itemNamed("layer-1", "fleece pullover"),
		itemNamed("layer-2", "wool blazer"),
	}

	kept := HardFilter(intent.Business, catalog.SlotLayer, items)
	require.Len(t, kept, 1)
	require.Equal(t, "layer-2", kept[0].ID)
}

func TestHardFilter_FormalDropsFleeceLayer(t *testing.T) {
	items := []catalog.Item{
		itemNamed("layer-1", "fleece pullover"),
		itemNamed("layer-2", "wool blazer"),
	}

	kept := HardFilter(intent.Formal, catalog.SlotLayer, items)
	require.Len(t, kept, 1)
	require.Equal(t, "layer-2", kept[0].ID)
}

func TestHardFilter_DegradesWhenAllItemsWouldBeDropped(t *testing.T) {
	items := []catalog.Item{
		itemNamed("layer-1", "fleece pullover"),
	}

	kept := HardFilter(intent.Business, catalog.SlotLayer, items)
	require.Len(t, kept, 1, "emptying the pool suppresses the avoid list instead")
}

func TestHardFilter_UnknownSlotReturnsUnfiltered(t *testing.T) {
	items := []catalog.Item{itemNamed("acc-1", "statement necklace")}

	kept := HardFilter(intent.Business, catalog.SlotAccessories, items)
	require.Equal(t, items, kept)
}

func TestHardFilter_BusinessDropsRunningSneaker(t *testing.T) {
	items := []catalog.Item{
		itemNamed("shoe-1", "running sneaker"),
		itemNamed("shoe-2", "leather oxford"),
	}

	kept := HardFilter(intent.Business, catalog.SlotFootwear, items)
	require.Len(t, kept, 1, "running sneaker is hard-avoided for business")
	require.Equal(t, "shoe-2", kept[0].ID)
}

func TestBias_PreferMatchAddsMagnitude(t *testing.T) {
	score := Bias(intent.Business, catalog.SlotTop, "navy blazer")
	require.Greater(t, score, 0.0)
}

func TestBias_UnknownIntentReturnsZero(t *testing.T) {
	require.Equal(t, 0.0, Bias(intent.Label("unknown"), catalog.SlotTop, "blazer"))
}

func TestOutfitBias_StricterIntentsScoreHigher(t *testing.T) {
	require.Greater(t, OutfitBias(intent.Business), OutfitBias(intent.Casual))
}
