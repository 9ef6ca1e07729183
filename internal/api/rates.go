package api

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// ErrCurrencyNotFound is returned when the rates document has no entry for
// the requested currency.
var ErrCurrencyNotFound = errors.New("currency not found in rates document")

// ratesDocument is the central bank's daily rates XML:
//
//	<ValCurs Date="24.03.2023" name="Foreign Currency Market">
//	  <Valute ID="R01235"><CharCode>USD</CharCode><Nominal>1</Nominal><Value>76,4567</Value></Valute>
//	</ValCurs>
type ratesDocument struct {
	XMLName xml.Name `xml:"ValCurs"`
	Date    string   `xml:"Date,attr"`
	Valutes []struct {
		CharCode string `xml:"CharCode"`
		Nominal  string `xml:"Nominal"`
		Value    string `xml:"Value"`
	} `xml:"Valute"`
}

// FetchExchangeRate downloads the rates document from the endpoint and
// returns the ruble price of one unit of the currency with the given char code.
func (c *Client) FetchExchangeRate(ctx context.Context, charCode string) (decimal.Decimal, error) {
	body, err := c.doRequest(ctx, "application/xml, text/xml")
	if err != nil {
		return decimal.Zero, err
	}

	rate, err := parseExchangeRate(body, charCode)
	if err != nil {
		return decimal.Zero, err
	}

	c.logger.Debug("fetched exchange rate",
		"endpoint", c.endpoint,
		"currency", charCode,
		"rate", rate.String(),
	)

	return rate, nil
}

func parseExchangeRate(body []byte, charCode string) (decimal.Decimal, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charsetReader

	var doc ratesDocument
	if err := dec.Decode(&doc); err != nil {
		return decimal.Zero, &ParseError{Subject: "exchange rates", Body: body, Err: err}
	}

	for _, v := range doc.Valutes {
		if !strings.EqualFold(strings.TrimSpace(v.CharCode), charCode) {
			continue
		}

		value, err := parseRussianDecimal(v.Value)
		if err != nil {
			return decimal.Zero, &ParseError{Subject: "exchange rates", Body: body, Err: fmt.Errorf("%s value %q: %w", charCode, v.Value, err)}
		}

		nominal := decimal.NewFromInt(1)
		if strings.TrimSpace(v.Nominal) != "" {
			nominal, err = parseRussianDecimal(v.Nominal)
			if err != nil || !nominal.IsPositive() {
				return decimal.Zero, &ParseError{Subject: "exchange rates", Body: body, Err: fmt.Errorf("%s nominal %q invalid", charCode, v.Nominal)}
			}
		}

		return value.Div(nominal), nil
	}

	return decimal.Zero, fmt.Errorf("%s: %w", charCode, ErrCurrencyNotFound)
}

// parseRussianDecimal accepts a comma as the decimal separator.
func parseRussianDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "windows-1251", "cp1251":
		return charmap.Windows1251.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("unsupported charset %q", label)
}
