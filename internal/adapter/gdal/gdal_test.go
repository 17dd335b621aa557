package gdal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/martibosch/swisstopopy/internal/geo"
)

func TestSRIDFromWKT(t *testing.T) {
	tests := []struct {
		name string
		wkt  string
		want geo.SRID
	}{
		{
			name: "wkt1 takes the outermost authority",
			wkt: `PROJCS["CH1903+ / LV95",GEOGCS["CH1903+",DATUM["CH1903+",` +
				`SPHEROID["Bessel 1841",6377397.155,299.1528128,AUTHORITY["EPSG","7004"]],` +
				`AUTHORITY["EPSG","6150"]],AUTHORITY["EPSG","4150"]],` +
				`UNIT["metre",1,AUTHORITY["EPSG","9001"]],AUTHORITY["EPSG","2056"]]`,
			want: geo.LV95,
		},
		{
			name: "wkt2 id node",
			wkt:  `PROJCRS["CH1903+ / LV95",BASEGEOGCRS["CH1903+"],ID["EPSG",2056]]`,
			want: geo.LV95,
		},
		{
			name: "no authority",
			wkt:  `LOCAL_CS["arbitrary"]`,
			want: 0,
		},
		{
			name: "empty",
			wkt:  "",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sridFromWKT(tt.wkt))
		})
	}
}
