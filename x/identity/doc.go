/*
Package identity implements the compliance gate consulted before any value
moves.

An address is eligible when it passed the external compliance process and
was registered here. Independently of eligibility, an address can be
trusted within a scope: the escrow registry grants trust to the payee and
the payer under the scope of a single payment, so that none of these grants
leaks to any other payment. Trust lifts transfer limits but an address must
still be eligible. The wallet itself and the fee wallets are registered as
contract accounts of the payment, the only grants that stand in for
eligibility.
*/
package identity
