package listings

import (
	"math"
	"net/url"
	"strings"

	"github.com/sngm3741/wanderlust/api/internal/interfaces/http/common"
	listingapp "github.com/sngm3741/wanderlust/api/internal/listing/application"
	"github.com/sngm3741/wanderlust/api/internal/listing/domain"
)

// HTML フォームは listing[title] のようなネストした名前で送られてくる。
const (
	fieldTitle       = "listing[title]"
	fieldDescription = "listing[description]"
	fieldPrice       = "listing[price]"
	fieldLocation    = "listing[location]"
	fieldCountry     = "listing[country]"
	fieldImage       = "listing[image]"

	fieldReviewComment = "review[comment]"
	fieldReviewRating  = "review[rating]"
)

type listingForm struct {
	values url.Values
}

// optional returns nil when the field was not submitted at all.
func (f listingForm) optional(key string) *string {
	values, ok := f.values[key]
	if !ok || len(values) == 0 {
		return nil
	}
	value := values[0]
	return &value
}

func (f listingForm) text(key string) string {
	return f.values.Get(key)
}

// createCommand builds the create command. Image is attached after upload.
func (f listingForm) createCommand(actorID string) (listingapp.CreateListingCommand, error) {
	verr := domain.NewValidationError()
	price, ok := common.ParseNonNegativeInt(f.text(fieldPrice))
	if !ok {
		verr.Add("price", "must be a number zero or greater")
	}
	if err := verr.OrNil(); err != nil {
		return listingapp.CreateListingCommand{}, err
	}
	return listingapp.CreateListingCommand{
		ActorID:     actorID,
		Title:       f.text(fieldTitle),
		Description: f.text(fieldDescription),
		Price:       price,
		Location:    f.text(fieldLocation),
		Country:     f.text(fieldCountry),
	}, nil
}

// updateCommand は送信されたフィールドだけをポインタで埋めた部分更新コマンドを返す。
func (f listingForm) updateCommand(actorID, listingID string) (listingapp.UpdateListingCommand, error) {
	cmd := listingapp.UpdateListingCommand{
		ActorID:     actorID,
		ListingID:   listingID,
		Title:       f.optional(fieldTitle),
		Description: f.optional(fieldDescription),
		Location:    f.optional(fieldLocation),
		Country:     f.optional(fieldCountry),
	}
	if raw := f.optional(fieldPrice); raw != nil {
		price, ok := common.ParseNonNegativeInt(*raw)
		if !ok {
			verr := domain.NewValidationError()
			verr.Add("price", "must be a number zero or greater")
			return listingapp.UpdateListingCommand{}, verr
		}
		cmd.Price = common.IntPtr(price)
	}
	return cmd, nil
}

// reviewInput accepts both review[comment] form fields and a JSON body.
type reviewInput struct {
	Review struct {
		Comment string `json:"comment"`
		Rating  any    `json:"rating"`
	} `json:"review"`
	Comment string `json:"comment"`
	Rating  any    `json:"rating"`
}

func (in reviewInput) comment() string {
	if strings.TrimSpace(in.Review.Comment) != "" {
		return in.Review.Comment
	}
	return in.Comment
}

func (in reviewInput) rating() int {
	value := in.Review.Rating
	if value == nil {
		value = in.Rating
	}
	switch v := value.(type) {
	case float64:
		// 4.7 のような小数は丸めず不正値として扱い、検証で弾く。
		if v != math.Trunc(v) || v < 0 || v > math.MaxInt32 {
			return 0
		}
		return int(v)
	case string:
		rating, _ := common.ParsePositiveInt(v, 0)
		return rating
	}
	return 0
}

func reviewInputFromForm(values url.Values) reviewInput {
	var in reviewInput
	in.Review.Comment = values.Get(fieldReviewComment)
	in.Review.Rating = values.Get(fieldReviewRating)
	return in
}
