package core

import "strconv"

// ClusterKey identifies an equivalence class of products that share all
// pricing-relevant attributes. Optional product fields normalize to "" so
// that two products with the attribute absent compare equal, while an absent
// attribute never collides with a real zero value.
type ClusterKey struct {
	ArrivalDate string `json:"arrival_date,omitempty"`
	RoomType    string `json:"room_type,omitempty"`
	Beds        string `json:"beds,omitempty"`
	Grade       string `json:"grade,omitempty"`
	PrivatePool string `json:"private_pool,omitempty"`
}

// ClusterKeyOf derives the cluster key of a product. Pure.
func ClusterKeyOf(p Product) ClusterKey {
	k := ClusterKey{RoomType: p.RoomType}
	if p.ArrivalDate != nil {
		k.ArrivalDate = p.ArrivalDate.Format("2006-01-02")
	}
	if p.Beds != nil {
		k.Beds = strconv.Itoa(*p.Beds)
	}
	if p.Grade != nil {
		k.Grade = strconv.Itoa(*p.Grade)
	}
	if p.PrivatePool != nil {
		k.PrivatePool = strconv.FormatBool(*p.PrivatePool)
	}
	return k
}

// GroupByCluster partitions products into clusters. Pure; order within a
// group follows input order but carries no meaning.
func GroupByCluster(products []Product) map[ClusterKey][]Product {
	clusters := make(map[ClusterKey][]Product)
	for _, p := range products {
		key := ClusterKeyOf(p)
		clusters[key] = append(clusters[key], p)
	}
	return clusters
}
