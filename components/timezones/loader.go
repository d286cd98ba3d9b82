package timezones

import (
	"context"
	"strconv"

	"github.com/goliatone/go-dialogform/pkg/model"
	"github.com/goliatone/go-dialogform/pkg/options"
)

// Loader returns an option loader over the zone list. The request query
// filters zones; the limit param, when numeric, caps the result.
func Loader(fns ...OptionFn) options.Loader {
	opts := NewOptions(fns...)
	return options.LoaderFunc(func(ctx context.Context, req options.Request) ([]model.Option, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		zones := opts.Zones
		if zones == nil {
			loaded, err := DefaultZones()
			if err != nil {
				return nil, err
			}
			zones = loaded
		}
		limit, _ := strconv.Atoi(req.Params[opts.LimitParam])
		return SearchOptions(zones, req.Query, limit, opts), nil
	})
}
