/*
Package escrow implements one-time escrow wallets holding a single payment
between a payer and a payee, mediated by an investor.

A wallet is created by the registry in the Created state, funded with the
amount plus the investor and owner fees, and settled either by releasing
the amount to the payee and the fees to their wallets, or by refunding
everything to the payer. Settlement requires the investor signature plus
the signature of either the payee (release) or the payer (refund).

After the payee submits a proof of delivery, the payer may dispute it for
the duration of the dispute window. The payee may sign only after that
window closed. Disputes are resolved by the investor.

All operations are executed by the Engine, which serializes every call
touching a single wallet and applies each call as one atomic unit over the
wallet record and the ledger.
*/
package escrow
